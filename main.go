package main

import (
	"context"
	"log"
	"os"

	"bakery-storefront/config"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()

	if err := newCLI(cfg).RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
