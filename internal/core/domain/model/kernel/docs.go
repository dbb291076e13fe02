// Package kernel holds the value objects shared by every aggregate:
// identifiers (UUID), actors and their roles, and money amounts.
package kernel
