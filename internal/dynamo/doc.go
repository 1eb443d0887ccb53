// Package dynamo holds what every few-body package shares: the sentinel
// errors, fixed-size snapshot records, the step observer interfaces and
// the Executor that runs independent groups concurrently.
//
// The Executor is created by the caller and passed down explicitly; the
// numerical packages never start goroutines on their own. Each task given
// to Run must own all the state it mutates.
package dynamo
