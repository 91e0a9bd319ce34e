// Package config loads, validates, and normalizes draftforge configuration.
package config
