package main

import (
	"github.com/nextlevelmlops/iris-ml-classification/internal/app"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"log"
)

func main() {
	cfg, err := config.New(".env")
	if err != nil {
		log.Fatal(err)
	}

	app.Run(cfg)
}
