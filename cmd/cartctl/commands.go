package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/storefront/internal/cartsync"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const syncTimeout = 15 * time.Second

func loadCatalog(opts globalOptions) (*catalog.Catalog, error) {
	if opts.catalogPath == "" {
		return nil, fmt.Errorf("catalog file is required (--catalog or $%s)", envCatalog)
	}
	return catalog.LoadFile(opts.catalogPath)
}

func requireUser(opts globalOptions) error {
	if opts.user == "" {
		return fmt.Errorf("%w (--user or $%s)", domain.ErrUserIDRequired, envUser)
	}
	return nil
}

func runAdd(sess *session, opts globalOptions, args []string, out io.Writer) error {
	var qty int
	flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVarP(&qty, "qty", "n", 1, "how many units to add")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("usage: add <product-id> [--qty N]")
	}
	if qty < 1 {
		return domain.ErrQuantityInvalid
	}

	products, err := loadCatalog(opts)
	if err != nil {
		return err
	}
	product, err := products.Get(flagSet.Arg(0))
	if err != nil {
		return err
	}

	for i := 0; i < qty; i++ {
		sess.store.Add(product)
	}
	printCart(out, sess.store.State())
	return nil
}

func runRemove(sess *session, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: remove <product-id>")
	}
	printCart(out, sess.store.Remove(args[0]))
	return nil
}

func runSet(sess *session, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: set <product-id> <quantity>")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}
	if qty < 1 {
		fmt.Fprintln(out, "quantity below 1 is ignored; use remove to drop the item")
	}
	printCart(out, sess.store.UpdateQuantity(args[0], qty))
	return nil
}

// newSyncer хранит отметку синхронизации в локальной базе: следующий запуск
// не сольёт повторно снимок, который уже отправил или учёл этот.
func newSyncer(sess *session, opts globalOptions) *cartsync.Syncer {
	return cartsync.NewSyncer(sess.store, cartsync.NewClient(opts.server, nil),
		cartsync.WithLogger(sess.logger.WithField("layer", "sync")),
		cartsync.WithRecorder(sess.metrics),
		cartsync.WithStorage(sess.storage),
	)
}

// runLoginSync сливает серверную корзину в локальную и сразу отправляет результат.
func runLoginSync(ctx context.Context, sess *session, opts globalOptions, out io.Writer) error {
	if err := requireUser(opts); err != nil {
		return err
	}

	syncer := newSyncer(sess, opts)
	defer syncer.Close()

	if err := syncer.Login(opts.user); err != nil {
		return err
	}
	syncer.Wait()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := syncer.Flush(ctx); err != nil {
		return fmt.Errorf("push cart: %w", err)
	}

	printCart(out, sess.store.State())
	return nil
}

func runPush(ctx context.Context, sess *session, opts globalOptions, out io.Writer) error {
	if err := requireUser(opts); err != nil {
		return err
	}

	syncer := newSyncer(sess, opts)
	defer syncer.Close()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	items := sess.store.State().Items
	if err := syncer.Push(ctx, opts.user); err != nil {
		return fmt.Errorf("push cart: %w", err)
	}

	fmt.Fprintf(out, "pushed %d line items for %s\n", len(items), opts.user)
	return nil
}

// runCheckout оформляет локальную корзину в заказ и очищает её.
func runCheckout(ctx context.Context, sess *session, opts globalOptions, args []string, out io.Writer) error {
	var address domain.ShippingAddress
	flagSet := pflag.NewFlagSet("checkout", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&address.FullName, "name", "", "recipient full name")
	flagSet.StringVar(&address.Address, "address", "", "street address")
	flagSet.StringVar(&address.City, "city", "", "city")
	flagSet.StringVar(&address.Country, "country", "", "country")
	flagSet.StringVar(&address.PostalCode, "postal-code", "", "postal code")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if err := requireUser(opts); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	order, err := cartsync.Checkout(ctx, sess.store, cartsync.NewClient(opts.server, nil), opts.user, address)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "order %s placed: %d items, total %s, status %s\n",
		order.ID, order.ItemCount(), order.Total.StringFixed(2), order.Status)
	printCart(out, sess.store.State())
	return nil
}

// runOrders печатает страницу истории заказов или один заказ по ID.
func runOrders(ctx context.Context, opts globalOptions, args []string, out io.Writer) error {
	var page int
	flagSet := pflag.NewFlagSet("orders", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVarP(&page, "page", "p", 1, "page of the order history, newest first")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 1 {
		return errors.New("usage: orders [--page N] [order-id]")
	}
	if page < 1 {
		return domain.ErrPageInvalid
	}
	if err := requireUser(opts); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	client := cartsync.NewClient(opts.server, nil)
	if flagSet.NArg() == 1 {
		order, err := client.GetOrder(ctx, opts.user, flagSet.Arg(0))
		if err != nil {
			return err
		}
		printOrder(out, order)
		return nil
	}

	result, err := client.ListOrders(ctx, opts.user, page)
	if err != nil {
		return err
	}
	printOrderPage(out, result)
	return nil
}

func runSearch(opts globalOptions, args []string, out io.Writer) error {
	var category string
	flagSet := pflag.NewFlagSet("search", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&category, "category", "c", "", "filter by category")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cat := domain.Category(category)
	if category != "" && !cat.Valid() {
		names := make([]string, 0, len(domain.Categories()))
		for _, c := range domain.Categories() {
			names = append(names, string(c))
		}
		return fmt.Errorf("unknown category %q (one of: %s)", category, strings.Join(names, ", "))
	}

	products, err := loadCatalog(opts)
	if err != nil {
		return err
	}

	found := products.Search(strings.Join(flagSet.Args(), " "), cat)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tIN STOCK")
	for _, p := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.InStock)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d products\n", len(found), products.Len())
	return nil
}

// runEvents печатает события корзин до отмены ctx. С --user показывает только его события.
func runEvents(ctx context.Context, opts globalOptions, args []string, out io.Writer) error {
	var (
		fromBeginning bool
		topic         string
	)
	flagSet := pflag.NewFlagSet("events", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&fromBeginning, "from-beginning", false, "read the topic from the oldest offset")
	flagSet.StringVar(&topic, "topic", kafka.TopicCartEvents, "topic with cart events")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	brokers := splitBrokers(opts.brokers)
	if len(brokers) == 0 {
		return fmt.Errorf("kafka brokers are required (--brokers or $%s)", envBrokers)
	}

	handler := eventPrinter(out, opts.user)
	consumer, err := kafka.NewConsumer(brokers, "cartctl-"+uuid.NewString(), []string{topic}, fromBeginning, handler)
	if err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return consumer.Stop()
}

func eventPrinter(out io.Writer, user string) kafka.MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		event, err := kafka.ParseCartEvent(message)
		if err != nil {
			return err
		}
		if user != "" && event.UserID != user {
			return nil
		}
		order := ""
		if event.OrderID != "" {
			order = " order=" + event.OrderID
		}
		_, err = fmt.Fprintf(out, "%s %-13s user=%s%s items=%d total=%s\n",
			event.Timestamp.Format(time.RFC3339), event.EventType, event.UserID, order, event.ItemCount, event.Total)
		return err
	}
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func printCart(out io.Writer, state domain.CartState) {
	if len(state.Items) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range state.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.ID, item.Name, item.Quantity, item.Price.StringFixed(2), item.Subtotal().StringFixed(2))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "items: %d  total: %s\n", domain.ItemCount(state.Items), state.Total.StringFixed(2))
}

func printOrderPage(out io.Writer, result domain.OrderPage) {
	if len(result.Orders) == 0 {
		fmt.Fprintf(out, "no orders on page %d\n", result.CurrentPage)
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tITEMS\tTOTAL")
		for _, order := range result.Orders {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				order.ID, order.CreatedAt.Format(time.RFC3339), order.Status, order.ItemCount(), order.Total.StringFixed(2))
		}
		_ = w.Flush()
	}
	fmt.Fprintf(out, "page %d of %d (%d orders)\n", result.CurrentPage, result.TotalPages, result.TotalOrders)
}

func printOrder(out io.Writer, order domain.Order) {
	fmt.Fprintf(out, "order %s  status: %s  created: %s\n", order.ID, order.Status, order.CreatedAt.Format(time.RFC3339))
	a := order.ShippingAddress
	fmt.Fprintf(out, "ship to: %s, %s, %s %s, %s\n", a.FullName, a.Address, a.City, a.PostalCode, a.Country)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range order.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.ProductID, item.ProductName, item.Quantity, item.Price.StringFixed(2), item.Subtotal().StringFixed(2))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "items: %d  total: %s\n", order.ItemCount(), order.Total.StringFixed(2))
}
