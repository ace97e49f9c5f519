package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/miniaturedb/internal/view"
	"github.com/mesh-intelligence/miniaturedb/pkg/client"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Environment variables read by the remote commands.
const (
	envServer   = "MINIDB_SERVER"
	envUser     = "MINIDB_USER"
	envPassword = "MINIDB_PASSWORD"

	defaultServer = "http://localhost:3001"
)

// remoteOptions locate and authenticate against a running server.
type remoteOptions struct {
	server   string
	user     string
	password string
}

func addRemoteFlags(cmd *cobra.Command, o *remoteOptions) {
	cmd.PersistentFlags().StringVar(&o.server, "server", "", "server URL (default: $MINIDB_SERVER or "+defaultServer+")")
	cmd.PersistentFlags().StringVar(&o.user, "user", "", "username (default: $MINIDB_USER)")
	cmd.PersistentFlags().StringVar(&o.password, "password", "", "password (default: $MINIDB_PASSWORD)")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// connect returns a logged-in client.
func (o *remoteOptions) connect(ctx context.Context) (*client.Client, error) {
	server := firstNonEmpty(o.server, os.Getenv(envServer), defaultServer)
	user := firstNonEmpty(o.user, os.Getenv(envUser))
	password := firstNonEmpty(o.password, os.Getenv(envPassword))
	if user == "" || password == "" {
		return nil, fmt.Errorf("credentials required: set --user and --password or %s and %s", envUser, envPassword)
	}

	c, err := client.New(server)
	if err != nil {
		return nil, sysError("create client: %w", err)
	}
	if err := c.Login(ctx, user, password); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, fmt.Errorf("login to %s failed: invalid username or password", server)
		}
		return nil, sysError("login to %s: %w", server, err)
	}
	return c, nil
}

// listOptions are the presentation flags of list commands.
type listOptions struct {
	filter   string
	page     int
	pageSize int
}

// listSpec describes one remote list command.
type listSpec[T any] struct {
	resource string
	short    string
	headers  []string
	fetch    func(context.Context, *client.Client) ([]T, error)
	fields   func(T) []string
	row      func(T) []string
}

func newListCmd[T any](spec listSpec[T]) *cobra.Command {
	var remote remoteOptions
	var opts listOptions

	parent := &cobra.Command{
		Use:   spec.resource,
		Short: "Browse " + spec.resource + " on a running server",
	}
	addRemoteFlags(parent, &remote)

	list := &cobra.Command{
		Use:   "list",
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			c, err := remote.connect(ctx)
			if err != nil {
				return err
			}
			items, err := spec.fetch(ctx, c)
			if err != nil {
				return sysError("fetch %s: %w", spec.resource, err)
			}
			page := view.Paginate(view.Filter(items, opts.filter, spec.fields), opts.page, pageSize(ctx, c, opts.pageSize))
			return printPage(cmd.OutOrStdout(), spec, page)
		},
	}
	list.Flags().StringVar(&opts.filter, "filter", "", "case-insensitive substring filter")
	list.Flags().IntVar(&opts.page, "page", 1, "page number")
	list.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per page (default: the page_size setting)")
	parent.AddCommand(list)
	return parent
}

// pageSize returns requested, or the user's page_size setting, or the
// default.
func pageSize(ctx context.Context, c *client.Client, requested int) int {
	if requested > 0 {
		return requested
	}
	settings, err := c.Settings(ctx)
	if err == nil {
		if n, err := strconv.Atoi(settings[types.SettingPageSize]); err == nil && n > 0 {
			return n
		}
	}
	return view.DefaultPageSize
}

func printPage[T any](out io.Writer, spec listSpec[T], page view.Page[T]) error {
	if flags.jsonMode {
		return json.NewEncoder(out).Encode(page)
	}
	rows := make([][]string, 0, len(page.Items))
	for _, it := range page.Items {
		rows = append(rows, spec.row(it))
	}
	fmt.Fprintln(out, renderTable(spec.headers, rows))
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Page %d of %d (%d %s)",
		page.Page, page.TotalPages, page.TotalItems, spec.resource)))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newRemoteCmds() []*cobra.Command {
	minis := newListCmd(listSpec[types.MiniDetail]{
		resource: "minis",
		short:    "List minis",
		headers:  []string{"ID", "NAME", "QTY", "COMPANY", "SET", "PAINTED", "LOCATION", "TAGS"},
		fetch: func(ctx context.Context, c *client.Client) ([]types.MiniDetail, error) {
			return c.Minis(ctx)
		},
		fields: func(m types.MiniDetail) []string {
			f := []string{m.Name, m.Location, m.PaintedByName, deref(m.CompanyName), deref(m.ProductSetName), deref(m.Description)}
			for _, t := range m.Tags {
				f = append(f, t.Name)
			}
			return f
		},
		row: func(m types.MiniDetail) []string {
			tags := make([]string, 0, len(m.Tags))
			for _, t := range m.Tags {
				tags = append(tags, t.Name)
			}
			return []string{
				strconv.FormatInt(m.ID, 10), m.Name, strconv.Itoa(m.Quantity),
				deref(m.CompanyName), deref(m.ProductSetName), m.PaintedByName,
				m.Location, strings.Join(tags, ", "),
			}
		},
	})

	companies := newListCmd(listSpec[types.CompanySummary]{
		resource: "companies",
		short:    "List companies",
		headers:  []string{"ID", "NAME", "LINES"},
		fetch: func(ctx context.Context, c *client.Client) ([]types.CompanySummary, error) {
			return c.Companies(ctx)
		},
		fields: func(co types.CompanySummary) []string { return []string{co.Name} },
		row: func(co types.CompanySummary) []string {
			return []string{strconv.FormatInt(co.ID, 10), co.Name, strconv.Itoa(co.LineCount)}
		},
	})

	tags := newListCmd(listSpec[types.TagSummary]{
		resource: "tags",
		short:    "List tags",
		headers:  []string{"ID", "NAME", "MINIS"},
		fetch: func(ctx context.Context, c *client.Client) ([]types.TagSummary, error) {
			return c.Tags(ctx)
		},
		fields: func(t types.TagSummary) []string { return []string{t.Name} },
		row: func(t types.TagSummary) []string {
			return []string{strconv.FormatInt(t.ID, 10), t.Name, strconv.Itoa(t.MiniCount)}
		},
	})

	return []*cobra.Command{minis, companies, tags, newDashboardCmd()}
}

func newDashboardCmd() *cobra.Command {
	var remote remoteOptions
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show catalog statistics from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			c, err := remote.connect(ctx)
			if err != nil {
				return err
			}
			d, err := c.Dashboard(ctx)
			if err != nil {
				return sysError("fetch dashboard: %w", err)
			}
			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return json.NewEncoder(out).Encode(d)
			}
			printDashboard(out, d)
			return nil
		},
	}
	addRemoteFlags(cmd, &remote)
	return cmd
}

func printDashboard(out io.Writer, d *types.Dashboard) {
	t := d.Totals
	fmt.Fprintln(out, sectionStyle.Render("Totals"))
	fmt.Fprintln(out, renderTable([]string{"MINIS", "FIGURES", "UNASSIGNED", "COMPANIES", "LINES", "SETS", "TYPES", "CATEGORIES", "TAGS"},
		[][]string{{
			strconv.Itoa(t.Minis), strconv.Itoa(t.Figures), strconv.Itoa(t.Unassigned),
			strconv.Itoa(t.Companies), strconv.Itoa(t.ProductLines), strconv.Itoa(t.ProductSets),
			strconv.Itoa(t.Types), strconv.Itoa(t.Categories), strconv.Itoa(t.Tags),
		}}))

	sections := []struct {
		title string
		rows  []types.CountRow
	}{
		{"By company", d.ByCompany},
		{"By type", d.ByType},
		{"By painted by", d.ByPaintedBy},
		{"By base size", d.ByBaseSize},
		{"By location", d.ByLocation},
		{"Top tags", d.TopTags},
	}
	for _, s := range sections {
		if len(s.rows) == 0 {
			continue
		}
		rows := make([][]string, 0, len(s.rows))
		for _, r := range s.rows {
			rows = append(rows, []string{r.Name, strconv.Itoa(r.Count), strconv.Itoa(r.Figures)})
		}
		fmt.Fprintln(out, sectionStyle.Render(s.title))
		fmt.Fprintln(out, renderTable([]string{"NAME", "MINIS", "FIGURES"}, rows))
	}

	if len(d.Recent) > 0 {
		rows := make([][]string, 0, len(d.Recent))
		for _, m := range d.Recent {
			rows = append(rows, []string{strconv.FormatInt(m.ID, 10), m.Name, m.UpdatedAt.Local().Format("2006-01-02 15:04")})
		}
		fmt.Fprintln(out, sectionStyle.Render("Recently updated"))
		fmt.Fprintln(out, renderTable([]string{"ID", "NAME", "UPDATED"}, rows))
	}
}
