// Package validation checks field values the way the form inputs do on
// blur, and lints block configurations before they are served.
package validation
