package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/resupply-planner/resupply/go/config"
	"github.com/resupply-planner/resupply/go/logging"
	"github.com/resupply-planner/resupply/go/route"
	"github.com/resupply-planner/resupply/go/store"
	log "github.com/sirupsen/logrus"
)

// Config is the route planner CLI configuration.
var Config = new(struct {
	Database     config.Database `group:"Database"`
	Log          config.Logging  `group:"Logging"`
	MaxJumpRange float64         `long:"max-jump-range" required:"true" description:"Maximum single-jump range in light years"`

	Args struct {
		Start string `positional-arg-name:"start_name" required:"true" description:"Name of the starting system"`
		End   string `positional-arg-name:"end_name" required:"true" description:"Name of the destination system"`
	} `positional-args:"true" required:"true"`
})

func main() {
	config.MustParse(Config)
	must(logging.Init(Config.Log, ""), "initialising logging")

	var ctx = context.Background()
	st, err := store.Open(ctx, Config.Database.DSN())
	must(err, "opening store")
	defer st.Close()

	start, err := st.LookupSystemByName(ctx, Config.Args.Start)
	must(err, "looking up start system")
	if start == nil {
		log.WithField("name", Config.Args.Start).Error("start system not found")
		os.Exit(1)
	}
	end, err := st.LookupSystemByName(ctx, Config.Args.End)
	must(err, "looking up end system")
	if end == nil {
		log.WithField("name", Config.Args.End).Error("end system not found")
		os.Exit(1)
	}

	var planner = &route.Planner{Store: st}
	plan, err := planner.Plan(ctx, *start, *end, Config.MaxJumpRange)
	if errors.Is(err, route.ErrNoRoute) {
		fmt.Println("No route found.")
		os.Exit(1)
	}
	must(err, "planning route")

	fmt.Print(route.Format(plan))
}

func must(err error, msg string) {
	if err != nil {
		log.WithError(err).Fatal(msg)
	}
}
