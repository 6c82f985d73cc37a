package cmdopts

import (
	"fmt"
	"runtime/debug"

	"github.com/anchor/marquise/internal/errorsx"
)

type Version struct{}

func (t Version) Run(ctx *Global) (err error) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errorsx.Errorf("unable to read build info")
	}

	_, err = fmt.Println(info.Main.Path, info.Main.Version)
	return err
}
