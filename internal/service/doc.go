// Package service provides clients for the external risk services: NLP
// scoring, entity registry lookup, media deepfake detection, and risk
// explanation. Each client normalizes the loosely-specified JSON shapes
// those services return into the engine's model types. Network failures
// are returned to the caller as errors; the scan scheduler degrades to
// "no change" rather than propagating them.
package service
