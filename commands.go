package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"bakery-storefront/app"
	"bakery-storefront/checkout"
	"bakery-storefront/client"
	"bakery-storefront/config"
	"bakery-storefront/models"
	"bakery-storefront/orders"

	"github.com/urfave/cli/v2"
)

type storefront struct {
	cfg *config.Config
	app *app.App
}

func newCLI(cfg *config.Config) *cli.App {
	s := &storefront{cfg: cfg}
	return &cli.App{
		Name:  "storefront",
		Usage: "browse the bakery, manage your cart and place orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Usage: "API base URL", EnvVars: []string{"STOREFRONT_API_URL"}},
		},
		Before: s.open,
		After:  s.close,
		Commands: []*cli.Command{
			{Name: "signup", Usage: "create an account", Flags: credentialFlags(), Action: s.signup},
			{Name: "login", Usage: "log in", Flags: credentialFlags(), Action: s.login},
			{Name: "logout", Usage: "forget the stored session", Action: s.logout},
			{Name: "whoami", Usage: "show the current user", Action: s.whoami},
			{Name: "products", Usage: "list products", Action: s.products},
			{
				Name:   "cart",
				Usage:  "show the cart",
				Action: s.showCart,
				Subcommands: []*cli.Command{
					{Name: "set", Usage: "set a product's quantity (0 removes it)", ArgsUsage: "PRODUCT_ID QTY", Action: s.setQuantity},
					{Name: "remove", Usage: "remove a product", ArgsUsage: "PRODUCT_ID", Action: s.removeItem},
				},
			},
			{
				Name:  "checkout",
				Usage: "place an order for the cart",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "fulfillment date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "time", Usage: "requested time (HH:MM, optional)"},
					&cli.StringFlag{Name: "method", Value: string(models.FulfillmentPickup), Usage: "pickup or delivery"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "line1"},
					&cli.StringFlag{Name: "line2"},
					&cli.StringFlag{Name: "city"},
					&cli.StringFlag{Name: "state"},
					&cli.StringFlag{Name: "zip"},
				},
				Action: s.checkout,
			},
			{Name: "orders", Usage: "list your orders", Action: s.listOrders},
			{Name: "order", Usage: "show one order", ArgsUsage: "ORDER_ID", Action: s.showOrder},
			{
				Name:  "admin",
				Usage: "manage all orders (admins only)",
				Subcommands: []*cli.Command{
					{
						Name:   "orders",
						Usage:  "list every order",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "status", Usage: "placed, complete or canceled"}},
						Action: s.adminOrders,
					},
					{Name: "complete", Usage: "mark an order complete", ArgsUsage: "ORDER_ID", Action: s.adminTransition(models.OrderStatusComplete)},
					{Name: "cancel", Usage: "cancel an order", ArgsUsage: "ORDER_ID", Action: s.adminTransition(models.OrderStatusCanceled)},
					{Name: "watch", Usage: "refresh the order list as order events arrive", Action: s.adminWatch},
				},
			},
		},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Required: true},
		&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"STOREFRONT_PASSWORD"}},
	}
}

func (s *storefront) open(c *cli.Context) error {
	if api := c.String("api"); api != "" {
		s.cfg.APIBaseURL = api
	}
	a, err := app.New(c.Context, s.cfg)
	if err != nil {
		return err
	}
	s.app = a
	return a.Init(c.Context)
}

func (s *storefront) close(*cli.Context) error {
	if s.app == nil {
		return nil
	}
	return s.app.Close()
}

func fail(msg string) error {
	return cli.Exit(msg, 1)
}

func idArg(c *cli.Context, i int, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Args().Get(i), 10, 64)
	if err != nil || id <= 0 {
		return 0, fail(fmt.Sprintf("%s must be a positive number", what))
	}
	return id, nil
}

func (s *storefront) requireSession() error {
	if !s.app.Session.Authenticated() {
		return fail("Please log in first.")
	}
	return nil
}

func (s *storefront) signup(c *cli.Context) error {
	res := s.app.Session.Signup(c.Context, c.String("email"), c.String("password"))
	if !res.OK {
		return fail(res.Error)
	}
	fmt.Fprintf(c.App.Writer, "Welcome, %s!\n", s.app.Session.User().Email)
	return nil
}

func (s *storefront) login(c *cli.Context) error {
	res := s.app.Session.Login(c.Context, c.String("email"), c.String("password"))
	if !res.OK {
		return fail(res.Error)
	}
	fmt.Fprintf(c.App.Writer, "Logged in as %s\n", s.app.Session.User().Email)
	return nil
}

func (s *storefront) logout(c *cli.Context) error {
	if err := s.app.Logout(c.Context); err != nil {
		return fail("Logged out, but the saved session could not be removed: " + err.Error())
	}
	fmt.Fprintln(c.App.Writer, "Logged out")
	return nil
}

func (s *storefront) whoami(c *cli.Context) error {
	u := s.app.Session.User()
	if u == nil {
		fmt.Fprintln(c.App.Writer, "Not logged in")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s (%s)\n", u.Email, u.Role)
	return nil
}

func (s *storefront) products(c *cli.Context) error {
	products, err := s.app.Catalog.List(c.Context)
	if err != nil {
		return fail("Failed to load products")
	}
	for _, p := range products {
		fmt.Fprintf(c.App.Writer, "%3d  %-28s $%s\n", p.ID, p.Name, p.Price.StringFixed(2))
	}
	return nil
}

func printCart(w io.Writer, lines []models.CartLine, subtotal string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%3d  %-28s x%-3d $%s\n", l.ProductID, models.DisplayName(l.Product, l.ProductID), l.Qty, l.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(w, "Subtotal: $%s\n", subtotal)
}

func (s *storefront) showCart(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if s.app.Cart.Err() != "" {
		return fail(s.app.Cart.Err())
	}
	printCart(c.App.Writer, s.app.Cart.Items(), s.app.Cart.Subtotal().StringFixed(2))
	return nil
}

func (s *storefront) setQuantity(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	id, err := idArg(c, 0, "PRODUCT_ID")
	if err != nil {
		return err
	}
	if err := s.app.Cart.SetQuantityInput(c.Context, id, c.Args().Get(1)); err != nil {
		return fail(s.app.Cart.Err())
	}
	printCart(c.App.Writer, s.app.Cart.Items(), s.app.Cart.Subtotal().StringFixed(2))
	return nil
}

func (s *storefront) removeItem(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	id, err := idArg(c, 0, "PRODUCT_ID")
	if err != nil {
		return err
	}
	if err := s.app.Cart.RemoveItem(c.Context, id); err != nil {
		return fail(s.app.Cart.Err())
	}
	printCart(c.App.Writer, s.app.Cart.Items(), s.app.Cart.Subtotal().StringFixed(2))
	return nil
}

func (s *storefront) checkout(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	form := checkout.Form{
		FulfillmentDate: c.String("date"),
		RequestedTime:   c.String("time"),
		Method:          models.FulfillmentMethod(c.String("method")),
		Delivery: models.Delivery{
			Name:  c.String("name"),
			Line1: c.String("line1"),
			Line2: c.String("line2"),
			City:  c.String("city"),
			State: c.String("state"),
			Zip:   c.String("zip"),
		},
	}
	if missing := form.MissingDeliveryFields(); len(missing) > 0 {
		return fail("Missing delivery fields: " + strings.Join(missing, ", "))
	}

	res, err := s.app.Checkout.Place(c.Context, form)
	if err != nil {
		return fail(s.app.Checkout.Err())
	}
	fmt.Fprintf(c.App.Writer, "Order #%d placed for %s: %s\n", res.Order.ID, res.Order.FulfillmentDate, res.Confirmation)
	return nil
}

func printOrder(w io.Writer, o models.Order) {
	fmt.Fprintf(w, "Order #%d  %-9s %s %s  $%s\n", o.ID, o.Status, o.FulfillmentDate, o.FulfillmentMethod, o.Total.StringFixed(2))
}

func (s *storefront) listOrders(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.app.Orders.Load(c.Context); err != nil {
		return fail(s.app.Orders.Err())
	}
	summaries := s.app.Orders.Summaries()
	if len(summaries) == 0 {
		fmt.Fprintln(c.App.Writer, "No orders yet")
	}
	for _, sum := range summaries {
		printOrder(c.App.Writer, sum.Order)
		for _, it := range sum.Preview {
			fmt.Fprintf(c.App.Writer, "    %s x%d\n", models.DisplayName(it.Product, it.ProductID), it.Qty)
		}
		if sum.More > 0 {
			fmt.Fprintf(c.App.Writer, "    + %d more\n", sum.More)
		}
	}
	return nil
}

func (s *storefront) showOrder(c *cli.Context) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	id, err := idArg(c, 0, "ORDER_ID")
	if err != nil {
		return err
	}
	o, err := orders.Get(c.Context, s.app.Client, id)
	if err != nil {
		return fail(client.Message(err, "Could not load order"))
	}
	printOrder(c.App.Writer, *o)
	if o.RequestedTime != nil {
		fmt.Fprintf(c.App.Writer, "Requested time: %s\n", *o.RequestedTime)
	}
	if d := o.Delivery; d != nil {
		fmt.Fprintf(c.App.Writer, "Deliver to: %s, %s %s, %s, %s %s\n", d.Name, d.Line1, d.Line2, d.City, d.State, d.Zip)
	}
	for _, it := range o.Items {
		fmt.Fprintf(c.App.Writer, "    %s x%d @ $%s = $%s\n", models.DisplayName(it.Product, it.ProductID), it.Qty,
			it.PriceSnapshot.StringFixed(2), it.LineTotal.StringFixed(2))
	}
	return nil
}

func (s *storefront) requireAdmin() error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if !s.app.Session.IsAdmin() {
		return fail("Admin access required")
	}
	return nil
}

func (s *storefront) adminOrders(c *cli.Context) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	err := s.app.Admin.SetFilter(c.Context, models.OrderStatus(c.String("status")))
	if errors.Is(err, orders.ErrInvalidStatus) {
		return fail("status must be placed, complete or canceled")
	}
	if err != nil {
		return fail(s.app.Admin.Err())
	}
	for _, o := range s.app.Admin.Orders() {
		printOrder(c.App.Writer, o)
	}
	return nil
}

func (s *storefront) adminTransition(target models.OrderStatus) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := s.requireAdmin(); err != nil {
			return err
		}
		id, err := idArg(c, 0, "ORDER_ID")
		if err != nil {
			return err
		}
		if err := s.app.Admin.Load(c.Context); err != nil {
			return fail(s.app.Admin.Err())
		}
		if target == models.OrderStatusComplete {
			err = s.app.Admin.MarkComplete(c.Context, id)
		} else {
			err = s.app.Admin.Cancel(c.Context, id)
		}
		var refreshErr *orders.RefreshError
		switch {
		case errors.Is(err, orders.ErrAlreadyInStatus):
			return fail(fmt.Sprintf("Order #%d is already %s", id, target))
		case errors.As(err, &refreshErr):
			fmt.Fprintf(c.App.Writer, "Order #%d is now %s\n", id, target)
			fmt.Fprintf(c.App.ErrWriter, "Could not reload orders: %s\n", client.Message(refreshErr.Err, "Failed to load orders"))
			return nil
		case err != nil:
			return fail(s.app.Admin.Err())
		}
		fmt.Fprintf(c.App.Writer, "Order #%d is now %s\n", id, target)
		return nil
	}
}

func (s *storefront) adminWatch(c *cli.Context) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.app.Admin.Load(ctx); err != nil {
		return fail(s.app.Admin.Err())
	}
	err := s.app.WatchOrders(ctx, func(e models.OrderEvent) {
		fmt.Fprintf(c.App.Writer, "order #%d %s (%s)\n", e.OrderID, e.Type, e.Status)
		for _, o := range s.app.Admin.Orders() {
			printOrder(c.App.Writer, o)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Watching order events, Ctrl-C to stop")
	<-ctx.Done()
	return nil
}
