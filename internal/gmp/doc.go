// Package gmp is the command layer of the manager client.
//
// A Session authenticates over a Transport and turns raw responses into
// CommandResults. Rejections by the manager are results with OK unset; only
// transport faults, malformed documents and failed preconditions are errors.
// FetchAll, the Resource mappers and the task and admin operations are built
// on ExecuteAuthenticatedCommand.
package gmp
