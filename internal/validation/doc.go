// Package validation decides whether each discovered file needs checking,
// runs the external validator, and applies the configured remediation.
//
// The decision of what to do with one file is a pure function of the stored
// record and the force flag (Decide); the Engine owns scheduling, the
// validator call, disk mutation, and the single inventory write per item.
// Tool failures never escape the Engine: they become a recorded status.
package validation
