// Package preflight provides readiness checks for the external tools and
// filesystem paths resplice depends on.
//
// These checks run in two contexts:
//   - "resplice check" prints every result as a table.
//   - The batch runner uses FreeBytes to bound how many tasks may hold a
//     workspace at once.
package preflight
