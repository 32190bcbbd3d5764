// Package layers is a scoped service-composition runtime: providers are
// declared lazily with explicit identities, composed into a dependency graph
// via combinators, and constructed at most once per build, with acquired
// resources torn down in reverse order when their scope closes.
package layers
