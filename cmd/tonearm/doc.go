// Command tonearm maintains a personal music library: it normalizes loudness,
// stamps metadata resolved from per-directory documents, promotes the results
// back over the source files, and mirrors the library to portable devices.
package main
