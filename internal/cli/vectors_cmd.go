package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/functions"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

var vectorsSeedFile string

// vectorsCmd groups vector store maintenance commands
var vectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Manage the reply context vector collection",
}

// newVectorService builds a VectorService from the loaded config
func newVectorService() *services.VectorService {
	processor := functions.NewProcessor(cfg.AI)
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	return services.NewVectorService(cfg.Vector, processor.AIClient(), logService)
}

// vectorsSeedCmd embeds and stores context snippets
var vectorsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the collection with reply context snippets",
	Long: `Seed the vector collection with outreach context snippets used to
ground suggested replies. Without --file the built-in snippet set is
used; with --file each non-empty line of the file becomes one snippet.`,
	Run: func(cmd *cobra.Command, args []string) {
		var snippets []string
		if vectorsSeedFile != "" {
			f, err := os.Open(vectorsSeedFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line != "" {
					snippets = append(snippets, line)
				}
			}
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		count, err := newVectorService().Seed(snippets)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d snippets into collection %s\n", count, cfg.Vector.Collection)
	},
}

// vectorsResetCmd drops the collection
var vectorsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the vector collection",
	Run: func(cmd *cobra.Command, args []string) {
		if err := newVectorService().Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Collection %s dropped\n", cfg.Vector.Collection)
	},
}

func init() {
	vectorsSeedCmd.Flags().StringVar(&vectorsSeedFile, "file", "", "file with one snippet per line")
	vectorsCmd.AddCommand(vectorsSeedCmd)
	vectorsCmd.AddCommand(vectorsResetCmd)
}
