package platform

// Package platform contains filesystem and URL glue around the external
// downloading tool: media URL normalization, download directory handling,
// and resolution of the final artifact after postprocessing.
