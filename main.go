package main

import (
	"log"

	"github.com/jobsift/jobsift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
