package main

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/kumoshiro/scenepack/asset"
	"github.com/kumoshiro/scenepack/flatten"
)

type meshSummary struct {
	Name      string   `yaml:"name"`
	Vertices  int      `yaml:"vertices"`
	Submeshes int      `yaml:"submeshes"`
	Instances int      `yaml:"instances"`
	Textures  []string `yaml:"textures,omitempty"`
}

type summary struct {
	Nodes           int           `yaml:"nodes"`
	SampleTimes     int           `yaml:"sample_times"`
	AnimatedNodes   int           `yaml:"animated_nodes"`
	Skeletons       int           `yaml:"skeletons"`
	VertexPoolBytes int           `yaml:"vertex_pool_bytes"`
	IndexPoolBytes  int           `yaml:"index_pool_bytes"`
	Meshes          []meshSummary `yaml:"meshes"`
}

// dump writes the shared pools and a YAML summary next to them.
func dump(dir, input string, data *flatten.RenderData, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	if err := os.WriteFile(filepath.Join(dir, base+".vertices.bin"), data.VertexPool, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, base+".indices.bin"), data.IndexPool, 0o644); err != nil {
		return err
	}

	s := summary{
		Nodes:           len(data.NodePaths),
		SampleTimes:     len(data.SampleTimes),
		AnimatedNodes:   len(data.WorldAnimations),
		Skeletons:       len(data.SkeletonAnimations),
		VertexPoolBytes: len(data.VertexPool),
		IndexPoolBytes:  len(data.IndexPool),
	}
	for mi, m := range data.Meshes {
		ms := meshSummary{Name: m.Name, Vertices: m.VertexCount, Submeshes: len(m.Submeshes)}
		if mi < len(data.InstanceCounts) {
			ms.Instances = data.InstanceCounts[mi]
		}
		flags := data.TextureFlags(mi)
		for sem, on := range flags {
			if on {
				ms.Textures = append(ms.Textures, asset.Semantic(sem).String())
			}
		}
		s.Meshes = append(s.Meshes, ms)
	}

	out, err := yaml.Marshal(&s)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, base+".summary.yaml")
	logger.Info("wrote dump", zap.String("dir", dir))
	return os.WriteFile(path, out, 0o644)
}
