// Package types defines the task and category entities, the transient
// filter/sort specification, storage configuration, and the standard errors
// shared by the todos engine and its collaborators.
package types
