// Package panel serves the pmdesk admin UI.
//
// The built UI is embedded with go:embed so the binary has no runtime file
// dependencies. During UI development a directory on disk can be served
// instead (api.ui_dir). Unknown paths fall back to index.html so the
// single-page app can own its client-side routes.
package panel
