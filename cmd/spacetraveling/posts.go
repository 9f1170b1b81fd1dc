package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling/listing"
	"github.com/eringen/spacetraveling/post"
	"github.com/eringen/spacetraveling/prismic"
)

func newPostsCmd(o *options) *cobra.Command {
	var more int
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts the way the listing page shows them",
		Long: `The posts command seeds the listing from the CMS and then triggers load more
the given number of times, printing the resulting list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := prismic.NewClient(o.cfg.PrismicEndpoint, prismic.WithAccessToken(o.cfg.PrismicAccessToken))
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(o.cfg.TimeZone)
			if err != nil {
				return err
			}
			dates, err := post.NewDateFormatter(o.cfg.Locale, loc)
			if err != nil {
				return err
			}

			resp, err := client.GetByType(ctx, post.TypeName, prismic.QueryOptions{PageSize: o.cfg.PageSize})
			if err != nil {
				return err
			}
			seed, err := listing.Seed(resp)
			if err != nil {
				return err
			}

			loader := listing.NewLoader(seed, client)
			for i := 0; i < more; i++ {
				if _, err := loader.LoadMore(ctx); err != nil {
					if errors.Is(err, listing.ErrExhausted) {
						break
					}
					return err
				}
			}
			printListing(cmd.OutOrStdout(), loader.State(), dates)
			return nil
		},
	}
	cmd.Flags().IntVar(&more, "more", 0, "number of load-more triggers")
	return cmd
}

func printListing(w io.Writer, st listing.State, dates *post.DateFormatter) {
	for _, s := range st.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, dates.Format(s.PublishedAt), s.Author, s.Title)
	}
	if st.CanLoadMore() {
		fmt.Fprintf(w, "more: %s\n", *st.Cursor)
	}
}
