// Package config loads route tables for vroute.
//
// A route table is stored in routes.json, routes.yaml or routes.yml. It
// holds server settings, the initial state of the server's history and an
// ordered list of route declarations. This package handles loading, saving,
// validating and watching route tables, and fetching them from S3.
//
// # Route Table Structure
//
//	{
//	  "name": "shop",
//	  "server": {
//	    "address": "localhost:3000",
//	    "metricsPath": "/metrics",
//	    "logLevel": "info",
//	    "basename": "/app"
//	  },
//	  "history": {
//	    "initialEntries": ["/"],
//	    "keyLength": 6,
//	    "hashType": "slash"
//	  },
//	  "routes": [
//	    { "name": "home", "path": "/", "exact": true },
//	    { "name": "user", "path": "/users/:id" },
//	    { "name": "about", "paths": ["/about", "/info"] },
//	    { "name": "legacy", "path": "/u/:id", "redirect": { "to": "/users/:id" } },
//	    { "name": "not-found" }
//	  ]
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	r := router.NewRouter(history.NewMemory(cfg.HistoryOptions()...), nil, cfg.Routes())
package config
