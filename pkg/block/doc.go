// Package block defines the field-block descriptors the Conexys backend
// supplies for every form. A block names its field kind, identity, current
// value, permission level and validation constraints. Decoding is lenient in
// the same places the backend is inconsistent: permission levels arrive as
// numbers or numeric strings, validation constraints arrive either flat on the
// block (`required`, `validatetype`, `minlength`, ...) or nested under
// `validate`, and whole configurations arrive as a JSON array or as a JSON
// string wrapping that array.
package block
