//go:build ignore

// Package main generates a synthetic chunks corpus for benchmarking and
// manual testing of the queryai CLI.
// Usage: go run scripts/generate-corpus.go -documents 200 -output corpus.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
)

var (
	numDocuments = flag.Int("documents", 200, "Number of documents to generate")
	chunksPerDoc = flag.Int("chunks", 5, "Chunks per document")
	outputPath   = flag.String("output", "corpus.json", "Output file")
	seed         = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type chunkRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	OwnerID    string `json:"owner_id"`
	TopicID    string `json:"topic_id,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
	Title      string `json:"title,omitempty"`
}

var topics = []string{
	"biology", "networking", "storage", "security", "deployment",
	"billing", "onboarding", "monitoring",
}

var subjects = []string{
	"photosynthesis", "load balancing", "replication", "encryption at rest",
	"rolling upgrades", "invoice reconciliation", "account provisioning",
	"alert routing", "cache eviction", "consensus protocols",
	"index compaction", "rate limiting", "schema migration",
	"certificate rotation", "capacity planning",
}

var sentenceForms = []string{
	"%s depends on careful configuration of the underlying system.",
	"The most common failure mode in %s is misconfigured timeouts.",
	"%s is usually introduced gradually, one component at a time.",
	"Operators monitor %s through a dedicated dashboard.",
	"A frequent question about %s concerns its interaction with retries.",
	"The documentation describes %s in terms of inputs and guarantees.",
	"%s behaves differently under sustained load than in short bursts.",
	"Teams often automate %s once the manual process stabilizes.",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	records := make([]chunkRecord, 0, *numDocuments**chunksPerDoc)
	for d := 0; d < *numDocuments; d++ {
		topic := topics[rng.Intn(len(topics))]
		subject := subjects[rng.Intn(len(subjects))]
		docID := fmt.Sprintf("doc-%04d", d)

		for c := 0; c < *chunksPerDoc; c++ {
			records = append(records, chunkRecord{
				ID:         fmt.Sprintf("%s-chunk-%d", docID, c),
				DocumentID: docID,
				Content:    paragraph(rng, subject),
				OwnerID:    "bench",
				TopicID:    topic,
				ChunkIndex: c,
				Title:      fmt.Sprintf("Notes on %s", subject),
			})
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d chunks across %d documents in %s\n",
		len(records), *numDocuments, *outputPath)
}

// paragraph builds a few sentences about the subject, varying enough that
// BM25 scores spread out instead of collapsing to ties.
func paragraph(rng *rand.Rand, subject string) string {
	n := 3 + rng.Intn(3)
	out := ""
	for i := 0; i < n; i++ {
		form := sentenceForms[rng.Intn(len(sentenceForms))]
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf(form, subject)
	}
	return out
}
