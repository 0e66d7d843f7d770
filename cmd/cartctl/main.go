// cartctl — клиент корзины витрины для терминала: локальная корзина в pebble,
// поиск по каталогу, синхронизация с cart-server после входа пользователя
// и оформление заказов.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	log "github.com/sirupsen/logrus"
)

const (
	envDataDir = "CARTCTL_DATA_DIR"
	envServer  = "CARTCTL_SERVER"
	envUser    = "CARTCTL_USER"
	envCatalog = "CARTCTL_CATALOG"
	envBrokers = "KAFKA_BROKERS"

	defaultServer = "http://localhost:8080"
)

// globalOptions — флаги до имени команды.
type globalOptions struct {
	dataDir     string
	server      string
	user        string
	catalogPath string
	brokers     string
	metricsFile string
	logLevel    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Getenv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, getenv func(string) string) error {
	opts, rest, err := parseGlobal(args, getenv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(out)
		}
		return err
	}
	if len(rest) == 0 {
		printUsage(out)
		return errors.New("command is required")
	}
	if err := setupLogger(opts.logLevel); err != nil {
		return err
	}

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "search":
		return runSearch(opts, commandArgs, out)
	case "events":
		return runEvents(ctx, opts, commandArgs, out)
	case "orders":
		return runOrders(ctx, opts, commandArgs, out)
	case "help":
		printUsage(out)
		return nil
	}

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.close()

	switch command {
	case "show":
		printCart(out, sess.store.State())
		return nil
	case "add":
		return runAdd(sess, opts, commandArgs, out)
	case "remove":
		return runRemove(sess, commandArgs, out)
	case "set":
		return runSet(sess, commandArgs, out)
	case "clear":
		printCart(out, sess.store.Clear())
		return nil
	case "login-sync":
		return runLoginSync(ctx, sess, opts, out)
	case "push":
		return runPush(ctx, sess, opts, out)
	case "checkout":
		return runCheckout(ctx, sess, opts, commandArgs, out)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseGlobal(args []string, getenv func(string) string) (globalOptions, []string, error) {
	opts := globalOptions{
		dataDir:     getenv(envDataDir),
		server:      getenv(envServer),
		user:        getenv(envUser),
		catalogPath: getenv(envCatalog),
		brokers:     getenv(envBrokers),
	}
	if opts.server == "" {
		opts.server = defaultServer
	}
	if opts.dataDir == "" {
		opts.dataDir = defaultDataDir()
	}

	flagSet := pflag.NewFlagSet("cartctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.dataDir, "data-dir", opts.dataDir, "directory of the local cart database ($"+envDataDir+")")
	flagSet.StringVar(&opts.server, "server", opts.server, "cart-server base URL ($"+envServer+")")
	flagSet.StringVarP(&opts.user, "user", "u", opts.user, "authenticated user id ($"+envUser+")")
	flagSet.StringVar(&opts.catalogPath, "catalog", opts.catalogPath, "product catalog YAML file ($"+envCatalog+")")
	flagSet.StringVar(&opts.brokers, "brokers", opts.brokers, "comma-separated Kafka brokers for events ($"+envBrokers+")")
	flagSet.StringVar(&opts.metricsFile, "metrics-file", "", "write cart metrics in Prometheus text format on exit")
	flagSet.StringVar(&opts.logLevel, "log-level", "warning", "log level")

	if err := flagSet.Parse(args); err != nil {
		return globalOptions{}, nil, err
	}
	opts.user = strings.TrimSpace(opts.user)
	return opts, flagSet.Args(), nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".storefront")
}

func setupLogger(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	log.SetLevel(parsed)
	return nil
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `Usage: cartctl [global flags] <command> [args]

Commands:
  show                          print the local cart
  add <product-id> [--qty N]    add a catalog product (N times)
  remove <product-id>           remove a line item
  set <product-id> <quantity>   set quantity (values below 1 are ignored)
  clear                         empty the cart
  search [query] [--category C] search the catalog
  login-sync                    merge the server cart for --user and push the result
  push                          overwrite the server cart for --user with the local cart
  checkout --name --address --city --country --postal-code
                                place an order for --user from the local cart and clear it
  orders [--page N] [order-id]  list --user orders newest first, or show one order
  events [--from-beginning]     tail cart change events from Kafka

Global flags:
  --data-dir, --server, --user/-u, --catalog, --brokers, --metrics-file, --log-level
`)
}
