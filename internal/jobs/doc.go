// Package jobs runs analyses asynchronously. A Queue feeds submitted
// inputs to a fixed pool of workers and records each job in a Store so
// clients can poll for the result.
package jobs
