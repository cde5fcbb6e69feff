// Package wgpu computes height tiles on the GPU through wgpu/hal
// compute shaders.
//
// Importing the package registers the "wgpu" backend:
//
//	import _ "github.com/gogpu/relief/backend/wgpu"
//
// The backend runs on a standalone Vulkan device created at the first
// Prepare, or on a shared device handed in through SetDeviceProvider
// when embedding into a gogpu host application. If no GPU is
// available, Prepare fails with backend.ErrBackendNotAvailable and
// callers fall back to the software backend.
//
// Building with the nogpu tag compiles this package empty: nothing is
// registered and no GPU dependencies are linked.
package wgpu
