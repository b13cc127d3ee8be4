// Package media implements media search for an entity.
//
// A search asks the media repository's Action API for files linked to an
// entity, ranked by popularity, and keeps only files already used on
// another wiki. Each search is driven by the `core/reconcile` engine: this
// package supplies its Fetcher (APIFetcher) and Qualifier (UsagePolicy).
//
// # Components
//
//   - APIFetcher: Builds search round trips, decodes pages and continuation.
//   - UsagePolicy: Counts usage on allowed, non-local sites.
//   - Repository: Known-media store; files a page already shows.
//   - Service: Runs searches through a result cache and projects images.
//   - Archive: Records and replays API round trips as fixtures.
//   - Handler / Feature: HTTP endpoints and loader registration.
//
// # HTTP Endpoints
//
//   - GET /media/:entity : Search images (lang, limit, exclude, page).
//   - GET /media/page/:title/entity : Resolve the entity of a page.
//   - DELETE /media/:entity/cache : Drop cached searches of an entity.
package media
