package main

import (
	"log"

	"taskmarket/internal/app"
)

// @title                       TaskMarket API
// @version                     1.0
// @description                 Task marketplace: givers publish engagement tasks, doers claim and fulfil them.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("[app] %v", err)
	}
}
