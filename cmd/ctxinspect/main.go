// Command ctxinspect decodes a confidential transaction or block and prints
// a JSON summary of its contents.
//
// The input is read as hex from the first argument, or from stdin when no
// argument is given. Every flag can also be set through a CTX_ prefixed
// environment variable, e.g. CTX_LOG_LEVEL=debug.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements-ct/sigcache"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ctxinspect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, rest, err := loadConfig(args)
	if err != nil {
		return err
	}
	if !setLogLevels(cfg.LogLevel) {
		return errors.Errorf("invalid log level %q", cfg.LogLevel)
	}

	raw, err := readInput(rest, stdin)
	if err != nil {
		return err
	}

	r, err := inspect(ctx, cfg, raw, sigcache.DefaultVerifier())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	var str string
	switch len(args) {
	case 0:
		b, err := ioutil.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		str = string(b)
	case 1:
		str = args[0]
	default:
		return nil, errors.Errorf("expected one hex argument, got %d", len(args))
	}

	str = strings.TrimSpace(str)
	if str == "" {
		return nil, errNoInput
	}
	raw, err := hex.DecodeString(str)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex input")
	}
	return raw, nil
}
