// Package media captures page media and runs it through deepfake
// detection. It enumerates visible images and videos, fetches their
// bytes within a size cap, encodes them as data URLs, extracts EXIF
// editing hints, and fans the batch out to the detection service with
// bounded concurrency. The result is a per-severity count summary.
package media
