// Package providers holds the pieces shared by the vendor clients in its
// subpackages: base identity, the JSON API client and synthetic locks for
// vendors without a reservation concept.
package providers
