package command

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
)

func newStoreCmd(a *app) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Browse and buy from the campus store",
	}

	var q campus.Query
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				products, err := c.ListProducts(ctx, q)
				if err != nil {
					return err
				}
				table(out, "products", len(products), "ID\tNAME\tPRICE\tSTOCK", func(tw *tabwriter.Writer) {
					for _, p := range products {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.Name, cents(p.PriceCents), p.Stock)
					}
				})
				return nil
			})
		},
	}
	queryFlags(listCmd, &q)

	var p campus.Purchase
	buyCmd := &cobra.Command{
		Use:   "buy [product_id]",
		Short: "Buy a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.ProductID = args[0]
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				order, err := c.PurchaseProduct(ctx, p)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Order %s: %d x %s, total %s\n", order.ID, order.Quantity, order.ProductID, cents(order.TotalCents))
				return nil
			})
		},
	}
	buyCmd.Flags().StringVarP(&p.StudentID, "student", "s", "", "buying student id (required)")
	buyCmd.Flags().IntVarP(&p.Quantity, "quantity", "n", 1, "quantity")
	buyCmd.MarkFlagRequired("student")

	storeCmd.AddCommand(listCmd, buyCmd)
	return storeCmd
}

func newCourseCmd(a *app) *cobra.Command {
	courseCmd := &cobra.Command{
		Use:   "course",
		Short: "Browse, select and drop courses",
	}

	var q campus.Query
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				courses, err := c.ListCourses(ctx, q)
				if err != nil {
					return err
				}
				table(out, "courses", len(courses), "ID\tNAME\tTEACHER\tCREDITS\tSEATS", func(tw *tabwriter.Writer) {
					for _, co := range courses {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\n", co.ID, co.Name, co.TeacherID, co.Credits, co.Enrolled, co.Capacity)
					}
				})
				return nil
			})
		},
	}
	queryFlags(listCmd, &q)

	enroll := func(use, short, verb string, op func(*campus.Client, context.Context, string, string) (*campus.Course, error)) *cobra.Command {
		var studentID string
		cmd := &cobra.Command{
			Use:   use + " [course_id]",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
					course, err := op(c, ctx, args[0], studentID)
					if err != nil {
						return err
					}
					success.Fprintf(out, "✓ %s %s (%d/%d seats taken)\n", verb, course.ID, course.Enrolled, course.Capacity)
					return nil
				})
			},
		}
		cmd.Flags().StringVarP(&studentID, "student", "s", "", "student id (required)")
		cmd.MarkFlagRequired("student")
		return cmd
	}

	courseCmd.AddCommand(
		listCmd,
		enroll("select", "Enroll in a course", "Selected", (*campus.Client).SelectCourse),
		enroll("drop", "Leave a course", "Dropped", (*campus.Client).DropCourse),
	)
	return courseCmd
}
