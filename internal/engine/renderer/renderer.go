// Package renderer provides OpenGL rendering functionality.
package renderer

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/engine/background"
	"github.com/Faultbox/glbview/internal/engine/camera"
	"github.com/Faultbox/glbview/internal/engine/envmap"
	"github.com/Faultbox/glbview/internal/engine/framebuffer"
	"github.com/Faultbox/glbview/internal/engine/lighting"
	"github.com/Faultbox/glbview/internal/engine/renderer/shaders"
	"github.com/Faultbox/glbview/internal/engine/scene"
	"github.com/Faultbox/glbview/internal/engine/shader"
	"github.com/Faultbox/glbview/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	// Alpha is set when the default framebuffer has an alpha channel. Only
	// then is the backdrop drawn and the clear transparent.
	Alpha     bool
	Prefilter envmap.Options
}

// clearColor is used on opaque surfaces.
var clearColor = mgl32.Vec4{0.1, 0.1, 0.15, 1.0}

// Renderer handles all OpenGL rendering. Every method except SetBackdrop,
// SetEnvironmentBackground and NewPrefilterGenerator must be called on the
// thread that owns the GL context.
type Renderer struct {
	config Config
	log    *zap.Logger

	meshProgram     *shader.Program
	backdropProgram *shader.Program
	skyboxProgram   *shader.Program

	// attribute-less VAO for fullscreen passes
	emptyVAO uint32

	maxTextureSize int
	version        string

	backdrop      atomic.Pointer[background.Gradient]
	envBackground atomic.Bool

	resources   *resources
	frame       *frame
	warnedLimit bool
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.version = gl.GoStr(gl.GetString(gl.VERSION))
	var maxTex int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	r.maxTextureSize = int(maxTex)

	r.log.Info("OpenGL initialized",
		zap.String("version", r.version),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("max_texture_size", r.maxTextureSize),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	var err error
	if r.meshProgram, err = shader.New("mesh", shaders.MeshVertexShader, shaders.MeshFragmentShader); err != nil {
		return nil, err
	}
	if r.backdropProgram, err = shader.New("backdrop", shaders.BackdropVertexShader, shaders.BackdropFragmentShader); err != nil {
		r.meshProgram.Delete()
		return nil, err
	}
	if r.skyboxProgram, err = shader.New("skybox", shaders.SkyboxVertexShader, shaders.SkyboxFragmentShader); err != nil {
		r.meshProgram.Delete()
		r.backdropProgram.Delete()
		return nil, err
	}
	gl.GenVertexArrays(1, &r.emptyVAO)

	r.resources = newResources()
	r.frame = newFrame()
	r.SetSize(cfg.Width, cfg.Height)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.resources.release()
	if r.emptyVAO != 0 {
		gl.DeleteVertexArrays(1, &r.emptyVAO)
	}
	r.meshProgram.Delete()
	r.backdropProgram.Delete()
	r.skyboxProgram.Delete()
}

// SetSize resizes the drawing surface, in pixels.
func (r *Renderer) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Size returns the drawing surface size in pixels.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// Capabilities reports the extension list and limits of the context.
func (r *Renderer) Capabilities() asset.Capabilities {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		exts = append(exts, gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))))
	}
	return capabilities(exts, r.version, r.maxTextureSize)
}

// NewPrefilterGenerator returns a prefilter generator bound to this
// renderer's texture size limit. Safe to call from any goroutine.
func (r *Renderer) NewPrefilterGenerator() envmap.Generator {
	opts := r.config.Prefilter
	opts.MaxTextureSize = r.maxTextureSize
	return envmap.NewPMREMGenerator(opts)
}

// SetBackdrop sets or clears (nil) the gradient drawn under the scene.
func (r *Renderer) SetBackdrop(g *background.Gradient) {
	r.backdrop.Store(g)
}

// SetEnvironmentBackground selects whether the environment is drawn as the
// scene background once it is available.
func (r *Renderer) SetEnvironmentBackground(on bool) {
	r.envBackground.Store(on)
}

// Render draws one frame of s as seen from cam.
func (r *Renderer) Render(s *scene.Scene, cam *camera.Camera) {
	r.frame.collect(s)
	if r.frame.dropped > 0 && !r.warnedLimit {
		r.log.Warn("scene has more lights than the shader supports",
			zap.Int("dropped", r.frame.dropped),
			zap.Int("max_point", lighting.MaxPointLights),
			zap.Int("max_directional", lighting.MaxDirectionalLights),
		)
		r.warnedLimit = true
	}
	ambient := s.Ambient()
	env := r.resources.environment(s.Environment())

	if r.config.Alpha {
		gl.ClearColor(0, 0, 0, 0)
	} else {
		gl.ClearColor(clearColor[0], clearColor[1], clearColor[2], clearColor[3])
	}
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if g := r.backdrop.Load(); g != nil && r.config.Alpha {
		r.drawBackdrop(*g)
	}
	if env != nil && r.envBackground.Load() {
		r.drawSkybox(cam, env)
	}
	r.drawMeshes(s, cam, ambient, env)
}

// Snapshot returns the scene as seen from cam as bottom-up RGBA rows. At
// scale 1 the frame already in the back buffer is read; larger scales
// render again into an offscreen target, limited by the texture size.
func (r *Renderer) Snapshot(s *scene.Scene, cam *camera.Camera, scale int) ([]byte, int, int, error) {
	w, h := r.config.Width, r.config.Height
	for scale > 1 && max(w, h)*scale > r.maxTextureSize {
		scale--
	}
	if scale <= 1 {
		pixels := make([]byte, w*h*4)
		gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
		gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
		return pixels, w, h, nil
	}

	fb, err := framebuffer.New(w*scale, h*scale)
	if err != nil {
		return nil, 0, 0, err
	}
	defer fb.Destroy()

	restore := fb.Bind()
	r.Render(s, cam)
	pixels := fb.ReadPixels()
	restore()

	fw, fh := fb.Size()
	r.log.Debug("offscreen snapshot", zap.Int("width", fw), zap.Int("height", fh), zap.Int("scale", scale))
	return pixels, fw, fh, nil
}

func (r *Renderer) drawBackdrop(g background.Gradient) {
	top, bottom := g.Stops()
	// stops are sRGB bytes; the framebuffer is not sRGB-encoded
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	r.backdropProgram.Use()
	r.backdropProgram.SetVec3("uTop", top)
	r.backdropProgram.SetVec3("uBottom", bottom)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.DepthMask(true)
	gl.Enable(gl.DEPTH_TEST)
}

func (r *Renderer) drawSkybox(cam *camera.Camera, env *gpuEnvironment) {
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	r.skyboxProgram.Use()
	// position-free view so the sky stays at infinity
	view := cam.ViewMatrix()
	view.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	inv := cam.ProjectionMatrix().Mul4(view).Inv()
	r.skyboxProgram.SetMat4("uInverseViewProjection", inv)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, env.texture)
	r.skyboxProgram.SetInt("uEnvironment", 1)
	gl.BindVertexArray(r.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.DepthMask(true)
	gl.Enable(gl.DEPTH_TEST)
}

func (r *Renderer) drawMeshes(s *scene.Scene, cam *camera.Camera, ambient mgl32.Vec3, env *gpuEnvironment) {
	p := r.meshProgram
	p.Use()
	p.SetMat4("uViewProjection", cam.ViewProjection())
	p.SetVec3("uCameraPos", cam.Position)
	p.SetVec3("uAmbient", ambient)
	p.SetInt("uBaseColorMap", 0)
	p.SetInt("uEnvironment", 1)
	lights := r.frame.lights
	p.SetInt("uPointCount", int32(len(lights.Lights)))
	p.SetVec3Array("uPointPositions", lights.GetPositions())
	p.SetVec3Array("uPointColors", lights.GetColors())
	p.SetFloatArray("uPointRanges", lights.GetRanges())
	p.SetInt("uDirectionalCount", int32(len(lights.Directional)))
	p.SetVec3Array("uDirectionalDirections", lights.GetDirections())
	p.SetVec3Array("uDirectionalColors", lights.GetDirectionalColors())

	if env != nil {
		p.SetInt("uHasEnvironment", 1)
		p.SetFloat("uEnvMaxLevel", float32(env.levels-1))
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, env.texture)
	} else {
		p.SetInt("uHasEnvironment", 0)
	}

	for _, d := range r.frame.draws {
		p.SetMat4("uModel", d.world)
		p.SetMat3("uNormalMatrix", normalMatrix(d.world))

		for i := range d.mesh.Primitives {
			prim := &d.mesh.Primitives[i]
			gp := r.resources.primitive(d.mesh, i)
			if gp == nil {
				continue
			}
			mat := prim.Material
			p.SetVec4("uBaseColor", mgl32.Vec4(mat.BaseColor))
			p.SetFloat("uMetallic", mat.Metallic)
			p.SetFloat("uRoughness", mat.Roughness)

			tex := r.resources.image(s, mat.BaseColorImage)
			if tex != 0 {
				p.SetInt("uHasBaseColorMap", 1)
				gl.ActiveTexture(gl.TEXTURE0)
				gl.BindTexture(gl.TEXTURE_2D, tex)
			} else {
				p.SetInt("uHasBaseColorMap", 0)
			}

			if mat.DoubleSided {
				gl.Disable(gl.CULL_FACE)
			} else {
				gl.Enable(gl.CULL_FACE)
			}

			gl.BindVertexArray(gp.vao)
			gl.DrawElements(gl.TRIANGLES, gp.count, gl.UNSIGNED_INT, nil)
		}
	}
	gl.BindVertexArray(0)
}
