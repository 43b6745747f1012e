package main

import (
	"encoding/json"
	"fmt"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printLines(label string, lines []string) {
	for _, line := range lines {
		fmt.Printf("  %s: %s\n", label, line)
	}
}
