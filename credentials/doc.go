// Package credentials resolves the per-vendor credential fields of a
// backend from explicit values, secret sources, the environment, the
// per-vendor config file and the scheduler resource file, recording which
// source supplied every field.
package credentials
