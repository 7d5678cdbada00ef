// Command pricedump prints the contents of a Badger price cache.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mtgdb/mtgdb-server/internal/price"
)

func main() {
	dbPath := os.Getenv("PRICE_CACHE_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/mtgdb/data/prices.badger")
	}

	cache, err := price.OpenBadgerCacheReadOnly(dbPath)
	if err != nil {
		log.Fatalf("Failed to open price cache: %v", err)
	}
	defer cache.Close()

	fmt.Println("=== Price Cache Inspection ===")
	fmt.Printf("Path: %s\n", dbPath)
	fmt.Printf("Complete: %v\n", cache.Exists())
	fmt.Println()

	count := 0
	var total, highest float32
	highestID := ""

	err = cache.Each(context.Background(), func(id string, p float32) error {
		count++
		total += p
		if p > highest {
			highest, highestID = p, id
		}
		// Show the first few entries
		if count <= 10 {
			fmt.Printf("  %s  %.2f\n", id, p)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating price cache: %v", err)
	}
	if count > 10 {
		fmt.Printf("  ... and %d more entries\n", count-10)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Entries: %d\n", count)
	if count > 0 {
		fmt.Printf("Average price: %.2f\n", total/float32(count))
		fmt.Printf("Highest price: %.2f (%s)\n", highest, highestID)
	}
}
