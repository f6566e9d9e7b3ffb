// Package transform implements the image transforms a preprocessing pipeline
// is assembled from: contrast enhancement, denoising, sharpening, edge
// enhancement, thresholding, deskewing and crop-to-text.
//
// Every transform takes an 8-bit grayscale image and returns a new one whose
// bounds start at (0,0). Transforms never fail on a valid image; degenerate
// geometry resolves to returning the input unchanged. Inputs are never
// modified.
package transform
