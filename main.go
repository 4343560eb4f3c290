package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Yashdhokiya-7733/file-compression-and-decompression/compression"
)

func main() {
	decompFlagPtr := flag.Bool("decode", false, "flag to decode")
	statsFlagPtr := flag.Bool("stats", false, "flag to print statistics")
	outputFlagPtr := flag.String("output", "output", "flag for naming output file")

	flag.Parse()

	restArgs := flag.Args()

	if len(restArgs) != 1 {
		fmt.Println("Usage: huffman [-decode] [-stats] [-output name] <file>")
		os.Exit(1)
	}

	input, err := os.ReadFile(restArgs[0])
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}

	start := time.Now()

	if *decompFlagPtr {
		payload, err := compression.Decompress(input)
		if err != nil {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
		outPath := *outputFlagPtr + ".txt"
		if err := os.WriteFile(outPath, payload, 0644); err != nil {
			fmt.Println("Failed to write file: ", err)
			os.Exit(1)
		}
		fmt.Println("File written successfully to", outPath)
		if *statsFlagPtr {
			fmt.Printf("Compressed size:   %d bytes\n", len(input))
			fmt.Printf("Decompressed size: %d bytes\n", len(payload))
			fmt.Printf("Elapsed time:      %v\n", time.Since(start))
		}
	} else {
		payload, err := compression.Compress(input)
		if err != nil {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
		outPath := *outputFlagPtr + ".huf"
		if err := os.WriteFile(outPath, payload, 0644); err != nil {
			fmt.Println("Failed to write file: ", err)
			os.Exit(1)
		}
		fmt.Println("File written successfully to", outPath)
		if *statsFlagPtr {
			stats := compression.Stats{OriginalSize: len(input), CompressedSize: len(payload)}
			fmt.Printf("Original size:    %d bytes\n", stats.OriginalSize)
			fmt.Printf("Compressed size:  %d bytes\n", stats.CompressedSize)
			fmt.Printf("Compression ratio: %.2f\n", stats.Ratio())
			fmt.Printf("Space saving:      %.2f%%\n", stats.SpaceSaving())
			fmt.Printf("Elapsed time:      %v\n", time.Since(start))
		}
	}
}
