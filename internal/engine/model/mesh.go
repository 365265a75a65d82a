package model

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/glbview/internal/asset"
	"github.com/Faultbox/glbview/internal/logger"
)

// Mesh building errors.
var (
	ErrMeshOutOfRange     = errors.New("mesh index out of range")
	ErrAccessorOutOfRange = errors.New("accessor index out of range")
	ErrNoPositions        = errors.New("primitive has no POSITION attribute")
)

// BuildMesh reads every triangle primitive of doc.Meshes[index]. Primitives
// in other modes are skipped. Missing normals are generated from faces.
func BuildMesh(doc *gltf.Document, index int) (*Mesh, error) {
	if index < 0 || index >= len(doc.Meshes) {
		return nil, fmt.Errorf("%w: %d", ErrMeshOutOfRange, index)
	}
	src := doc.Meshes[index]

	mesh := &Mesh{Name: src.Name, Bounds: emptyBounds()}
	for pi, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logger.Debug("skipping non-triangle primitive",
				zap.String("mesh", src.Name),
				zap.Int("primitive", pi),
				zap.Int("mode", int(prim.Mode)),
			)
			continue
		}

		p, err := buildPrimitive(doc, prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", index, pi, err)
		}
		for _, v := range p.Vertices {
			updateBounds(&mesh.Bounds, v.Position)
		}
		mesh.Primitives = append(mesh.Primitives, *p)
	}
	return mesh, nil
}

func buildPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*Primitive, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, ErrNoPositions
	}
	posAcc, err := accessor(doc, posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, err
		}
		if normals, err = modeler.ReadNormal(doc, acc, nil); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, err
		}
		if uvs, err = modeler.ReadTextureCoord(doc, acc, nil); err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(doc, acc, nil); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	// Drop a trailing partial triangle and any out-of-range references.
	indices = indices[:len(indices)-len(indices)%3]
	for _, i := range indices {
		if int(i) >= len(positions) {
			return nil, fmt.Errorf("index %d exceeds %d vertices", i, len(positions))
		}
	}

	p := &Primitive{
		Vertices: make([]Vertex, len(positions)),
		Indices:  indices,
		Material: buildMaterial(doc, prim.Material),
	}
	for i, pos := range positions {
		v := Vertex{Position: pos}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(uvs) {
			v.TexCoord = uvs[i]
		}
		p.Vertices[i] = v
	}
	if len(normals) == 0 {
		GenerateNormals(p.Vertices, p.Indices)
	}
	return p, nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: %d", ErrAccessorOutOfRange, idx)
	}
	return doc.Accessors[idx], nil
}

func buildMaterial(doc *gltf.Document, idx *int) Material {
	m := DefaultMaterial()
	if idx == nil || *idx < 0 || *idx >= len(doc.Materials) {
		return m
	}
	src := doc.Materials[*idx]
	m.Name = src.Name
	m.DoubleSided = src.DoubleSided

	pbr := src.PBRMetallicRoughness
	if pbr == nil {
		return m
	}
	bc := pbr.BaseColorFactorOrDefault()
	m.BaseColor = [4]float32{float32(bc[0]), float32(bc[1]), float32(bc[2]), float32(bc[3])}
	m.Metallic = float32(pbr.MetallicFactorOrDefault())
	m.Roughness = float32(pbr.RoughnessFactorOrDefault())

	if pbr.BaseColorTexture != nil {
		ti := pbr.BaseColorTexture.Index
		if ti >= 0 && ti < len(doc.Textures) {
			if src, ok := TextureSource(doc.Textures[ti]); ok && src < len(doc.Images) {
				m.BaseColorImage = src
			}
		}
	}
	return m
}

// Texture extensions that carry an alternative image source.
const (
	ExtTextureBasisu = "KHR_texture_basisu"
	ExtTextureWebP   = "EXT_texture_webp"
)

// TextureSource returns the image a texture samples. Extension sources
// take precedence over the core fallback source.
func TextureSource(tex *gltf.Texture) (int, bool) {
	for _, name := range []string{ExtTextureBasisu, ExtTextureWebP} {
		var ext struct {
			Source *int `json:"source"`
		}
		found, err := asset.UnmarshalExtension(tex.Extensions, name, &ext)
		if found && err == nil && ext.Source != nil && *ext.Source >= 0 {
			return *ext.Source, true
		}
	}
	if tex.Source != nil && *tex.Source >= 0 {
		return *tex.Source, true
	}
	return -1, false
}

// GenerateNormals accumulates area-weighted face normals into every vertex
// and normalizes the result.
func GenerateNormals(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = [3]float32{}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		v0 := vertices[a].Position
		e1 := sub(vertices[b].Position, v0)
		e2 := sub(vertices[c].Position, v0)
		n := Cross(e1, e2)
		for _, idx := range [3]uint32{a, b, c} {
			vertices[idx].Normal[0] += n[0]
			vertices[idx].Normal[1] += n[1]
			vertices[idx].Normal[2] += n[2]
		}
	}
	for i := range vertices {
		vertices[i].Normal = Normalize(vertices[i].Normal)
	}
}
