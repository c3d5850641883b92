// Package keys stores node identity seeds on the local filesystem.
//
// Layout under the store directory:
//
//	<name>/root.key
//	<name>/roles/<role>.key
//
// Each file holds a single line "<scheme>:<hex seed>". Role keys are derived
// deterministically from the root seed and share its scheme.
package keys
