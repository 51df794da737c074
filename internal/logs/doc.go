// Package logs reads the bidsprep log file for the logs command.
package logs
