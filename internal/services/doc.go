// Package services defines the shared error taxonomy for the pipeline.
//
// Every failure is tagged with one of the exported sentinel errors so callers
// can classify faults (bad input, unparseable metadata, external tool exit,
// I/O, configuration) with errors.Is regardless of which stage produced them.
// The Wrap helper stamps stage and operation context onto the message.
package services
