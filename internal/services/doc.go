// Package services provides error classification and context annotation
// shared by the lifecycle stages.
package services
