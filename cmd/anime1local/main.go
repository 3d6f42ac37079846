package main

import (
	"context"
	"log"

	"github.com/alexflint/go-arg"

	"github.com/anime1local/server/internal/app"
)

type arguments struct {
	Host     string `arg:"-H,--host" help:"address to listen on"`
	Port     int    `arg:"-p,--port" help:"port to listen on"`
	LogLevel string `arg:"-l,--log-level" help:"debug, info, warn or error"`
}

func (arguments) Description() string {
	return "Local relay server exposing anime1.me posts as playlists and byte-range video streams."
}

func main() {
	var args arguments
	arg.MustParse(&args)

	ctx := context.Background()
	if err := app.Run(ctx, app.Overrides{
		Host:     args.Host,
		Port:     args.Port,
		LogLevel: args.LogLevel,
	}); err != nil {
		log.Fatal(err)
	}
}
