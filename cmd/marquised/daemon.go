package main

import (
	"log"
	"time"

	"github.com/anchor/marquise/agent"
	"github.com/anchor/marquise/backoff"
	"github.com/anchor/marquise/cmd/cmdopts"
	"github.com/anchor/marquise/internal/debugx"
	"github.com/anchor/marquise/internal/errorsx"
	"github.com/davecgh/go-spew/spew"
)

type daemon struct {
	SpoolDir   string   `name:"directory" help:"base directory holding namespace spools" default:"${vars_spool_directory}"`
	Host       string   `name:"host" help:"endpoint of the remote time series store" default:"${vars_ingest_host}"`
	Namespaces []string `arg:"" optional:"" help:"namespaces to drain, discovered from the spool directory when omitted"`
}

// Run drains the configured namespaces until shutdown. when no namespaces
// are given the spool directory is rescanned periodically so namespaces
// created after startup are picked up.
func (t daemon) Run(gctx *cmdopts.Global) (err error) {
	debugx.Println("configuration", spew.Sdump(t))

	discover := len(t.Namespaces) == 0

	running := map[string]struct{}{}
	launch := func(namespace string) {
		if _, ok := running[namespace]; ok {
			return
		}
		running[namespace] = struct{}{}

		gctx.Cleanup.Add(1)
		go func() {
			defer gctx.Cleanup.Done()
			log.Println("draining namespace initiated", namespace)
			defer log.Println("draining namespace completed", namespace)

			a := agent.New(namespace, agent.OptionSpoolDirectory(t.SpoolDir), agent.OptionHost(t.Host))
			errorsx.Log(errorsx.Wrapf(a.Run(gctx.Context), "drain failed: %s", namespace))
		}()
	}

	for _, namespace := range t.Namespaces {
		launch(namespace)
	}

	if !discover {
		<-gctx.Context.Done()
		return nil
	}

	w := backoff.Chan()
	s := backoff.New(
		backoff.Exponential(time.Second),
		backoff.Maximum(time.Minute),
		backoff.Jitter(0.02),
	)

	for {
		namespaces, err := agent.Namespaces(t.SpoolDir)
		if err != nil {
			log.Println(errorsx.Wrap(err, "unable to discover namespaces"))
		}

		for _, namespace := range namespaces {
			if _, ok := running[namespace]; !ok {
				w.Reset() // new namespaces reset the rescan delay
			}
			launch(namespace)
		}

		select {
		case <-gctx.Context.Done():
			return nil
		case <-w.Await(s):
		}
	}
}
