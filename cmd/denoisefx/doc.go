// Command denoisefx runs a switchable denoise filter over an image, video
// or camera source.
//
//	denoisefx providers            list backends and probe results
//	denoisefx run                  render headless, optionally saving frames
//	denoisefx preview              render into a window with live controls
package main
