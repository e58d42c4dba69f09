// Package reminder composes WhatsApp reminder messages from a user's tasks.
//
// The package is pure: it classifies tasks against a clock value, groups them
// by person in charge, renders message templates and plans send jobs. It never
// performs I/O. Sending the planned jobs is the caller's concern.
package reminder
