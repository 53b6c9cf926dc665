package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kumoshiro/scenepack/flatten"
	"github.com/kumoshiro/scenepack/gltfasset"
	"github.com/kumoshiro/scenepack/texload"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.gltf|input.glb\n", os.Args[0])
		flag.PrintDefaults()
	}
	configPath := flag.String("config", "", "YAML config file")
	fps := flag.Float64("fps", 0, "animation sample rate (0: from config)")
	rootToken := flag.String("root", "", "skeleton root path segment (default from config)")
	texDir := flag.String("texdir", "", "texture directory (default: input file directory)")
	texLimit := flag.Int("texlimit", 0, "longest texture edge in pixels (0: from config)")
	logFile := flag.String("log", "", "log file (rotated), in addition to stderr")
	logLevel := flag.String("level", "", "log level: debug, info, warn, error")
	dumpDir := flag.String("dump", "", "write vertex/index pools and a summary to this directory")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	cfg := flatten.DefaultConfig()
	if *configPath != "" {
		c, err := flatten.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		cfg = c
	}
	if *fps > 0 {
		cfg.FPS = float32(*fps)
	}
	if *rootToken != "" {
		cfg.SkeletonRoot = *rootToken
	}
	if *texDir != "" {
		cfg.TextureDir = *texDir
	}
	if *texLimit > 0 {
		cfg.TextureSizeLimit = *texLimit
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if cfg.TextureDir == "" {
		cfg.TextureDir = filepath.Dir(input)
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(input, *dumpDir, cfg, logger); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
}

func run(input, dumpDir string, cfg *flatten.Config, logger *zap.Logger) error {
	doc, err := gltfasset.Load(input)
	if err != nil {
		return err
	}

	opts := &flatten.Options{
		FPS:          cfg.FPS,
		SkeletonRoot: cfg.SkeletonRoot,
		Logger:       logger,
		Loader: texload.New(cfg.TextureDir, &texload.Options{
			SizeLimit: cfg.TextureSizeLimit,
			Logger:    logger,
		}),
	}
	if cfg.MaterialCache > 0 {
		cache, err := flatten.NewMaterialCache(cfg.MaterialCache)
		if err != nil {
			return err
		}
		opts.Cache = cache
	}

	data, err := flatten.Flatten(doc, opts)
	if err != nil {
		return err
	}

	logger.Info("flattened scene",
		zap.String("input", input),
		zap.Int("nodes", len(data.NodePaths)),
		zap.Int("meshes", len(data.Meshes)),
		zap.Int("meshNodes", len(data.MeshNodeIndices)),
		zap.Int("skeletons", len(data.SkeletonAnimations)),
		zap.Int("samples", len(data.SampleTimes)),
		zap.Int("animatedNodes", len(data.WorldAnimations)),
		zap.Int("vertexPoolBytes", len(data.VertexPool)),
		zap.Int("indexPoolBytes", len(data.IndexPool)))

	if dumpDir != "" {
		return dump(dumpDir, input, data, logger)
	}
	return nil
}
