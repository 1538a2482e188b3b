// Package core contains the authenticated request pipeline: the credential store
// contract, the request tap, the response classifier, the single-flight refresh
// coordinator and session teardown. Storage and transport adapters depend on this
// package; core must not depend on them.
package core
