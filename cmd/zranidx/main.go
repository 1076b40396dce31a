// Command zranidx builds, inspects, and reads through a DFLIDX index
// file over a compressed stream.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/coreos/zran"
	"github.com/coreos/zran/internal/header"
	"github.com/coreos/zran/yamlutil"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "zranidx:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: zranidx build|inspect|cat [flags]")
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	mode := fs.Int("mode", header.ModeGzip, "framing: -15 raw, 15 zlib, 31 gzip")
	span := fs.Uint64("span", zran.DefaultSpan, "target uncompressed spacing between points")
	in := fs.String("in", "", "path to the compressed input")
	out := fs.String("out", "", "path to write the DFLIDX index to")
	config := fs.String("config", "", "optional YAML file overriding unset flags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := applyConfig(fs, *config); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("zranidx build: -in and -out are required")
	}

	data, err := ioutil.ReadFile(*in)
	if err != nil {
		return errors.Wrap(err, "zranidx build: reading input")
	}

	idx, err := zran.Create(data, *mode, *span)
	if err != nil {
		return errors.Wrap(err, "zranidx build: indexing")
	}
	if err := idx.WriteFile(*out); err != nil {
		return errors.Wrap(err, "zranidx build: writing index")
	}

	fmt.Printf("built index: %d points over %d uncompressed bytes\n", idx.Have(), idx.UncompressedSize)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	path := fs.String("index", "", "path to a DFLIDX index file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("zranidx inspect: -index is required")
	}

	idx, err := zran.ReadFile(*path)
	if err != nil {
		return errors.Wrap(err, "zranidx inspect: reading index")
	}

	fmt.Printf("mode=%d compressed_size=%d uncompressed_size=%d have=%d\n",
		idx.Mode, idx.CompressedSize, idx.UncompressedSize, idx.Have())
	for i, p := range idx.Points {
		fmt.Printf("  [%d] outloc=%d inloc=%d bits=%d\n", i, p.Outloc, p.Inloc, p.Bits)
	}
	return nil
}

func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	compressedPath := fs.String("in", "", "path to the compressed input")
	indexPath := fs.String("index", "", "path to a DFLIDX index file")
	start := fs.Uint64("start", 0, "uncompressed start offset")
	length := fs.Uint64("length", 0, "number of uncompressed bytes to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *compressedPath == "" || *indexPath == "" {
		return errors.New("zranidx cat: -in and -index are required")
	}

	compressed, err := ioutil.ReadFile(*compressedPath)
	if err != nil {
		return errors.Wrap(err, "zranidx cat: reading input")
	}
	idx, err := zran.ReadFile(*indexPath)
	if err != nil {
		return errors.Wrap(err, "zranidx cat: reading index")
	}

	out, err := zran.Decompress(compressed, idx, *start, *length)
	if err != nil {
		return errors.Wrap(err, "zranidx cat: decompressing")
	}
	_, err = os.Stdout.Write(out)
	return err
}

func applyConfig(fs *flag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "zranidx: reading config")
	}
	return yamlutil.SetFlagsFromYaml(fs, raw)
}
