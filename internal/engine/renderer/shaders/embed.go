// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader transforms mesh vertices into world and clip space.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader shades meshes with ambient light or the prefiltered
// environment.
//
//go:embed mesh.frag
var MeshFragmentShader string

// BackdropVertexShader emits a fullscreen triangle.
//
//go:embed backdrop.vert
var BackdropVertexShader string

// BackdropFragmentShader paints the vertical two-stop gradient.
//
//go:embed backdrop.frag
var BackdropFragmentShader string

//go:embed skybox.vert
var SkyboxVertexShader string

//go:embed skybox.frag
var SkyboxFragmentShader string
