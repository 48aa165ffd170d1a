package command

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
)

func newDocumentCmd(a *app) *cobra.Command {
	documentCmd := &cobra.Command{
		Use:   "document",
		Short: "Search and upload course documents",
	}

	var q campus.Query
	searchCmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search documents by title, author or category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Keyword = args[0]
			}
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				docs, err := c.SearchDocuments(ctx, q)
				if err != nil {
					return err
				}
				table(out, "documents", len(docs), "ID\tTITLE\tAUTHOR\tCATEGORY", func(tw *tabwriter.Writer) {
					for _, d := range docs {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Title, d.Author, d.Category)
					}
				})
				return nil
			})
		},
	}
	searchCmd.Flags().IntVarP(&q.Limit, "limit", "l", 0, "maximum results (server default when 0)")

	var d campus.Document
	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				stored, err := c.UploadDocument(ctx, d)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Uploaded %q as %s\n", stored.Title, stored.ID)
				return nil
			})
		},
	}
	uploadCmd.Flags().StringVar(&d.Title, "title", "", "document title (required)")
	uploadCmd.Flags().StringVar(&d.Author, "author", "", "author")
	uploadCmd.Flags().StringVar(&d.Category, "category", "", "category")
	uploadCmd.Flags().StringVar(&d.Content, "content", "", "document body")
	uploadCmd.MarkFlagRequired("title")

	documentCmd.AddCommand(searchCmd, uploadCmd)
	return documentCmd
}

func newBookCmd(a *app) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Search, borrow and return library books",
	}

	var q campus.Query
	searchCmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search the library catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Keyword = args[0]
			}
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				books, err := c.SearchBooks(ctx, q)
				if err != nil {
					return err
				}
				table(out, "books", len(books), "ISBN\tTITLE\tAUTHOR\tAVAILABLE", func(tw *tabwriter.Writer) {
					for _, b := range books {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\n", b.ISBN, b.Title, b.Author, b.Available, b.Total)
					}
				})
				return nil
			})
		},
	}
	searchCmd.Flags().IntVarP(&q.Limit, "limit", "l", 0, "maximum results (server default when 0)")

	var borrower string
	borrowCmd := &cobra.Command{
		Use:   "borrow [isbn]",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				loan, err := c.BorrowBook(ctx, args[0], borrower)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Borrowed %s, due %s\n", loan.ISBN, loan.DueAt.Format("2006-01-02"))
				return nil
			})
		},
	}
	borrowCmd.Flags().StringVarP(&borrower, "student", "s", "", "borrowing student id (required)")
	borrowCmd.MarkFlagRequired("student")

	var returner string
	returnCmd := &cobra.Command{
		Use:   "return [isbn]",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				loan, err := c.ReturnBook(ctx, args[0], returner)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Returned %s\n", loan.ISBN)
				if !loan.DueAt.IsZero() && loan.ReturnedAt.After(loan.DueAt) {
					days := int(loan.ReturnedAt.Sub(loan.DueAt).Hours()/24) + 1
					notice.Fprintf(out, "  %d day(s) overdue\n", days)
				}
				return nil
			})
		},
	}
	returnCmd.Flags().StringVarP(&returner, "student", "s", "", "borrowing student id (required)")
	returnCmd.MarkFlagRequired("student")

	bookCmd.AddCommand(searchCmd, borrowCmd, returnCmd)
	return bookCmd
}
