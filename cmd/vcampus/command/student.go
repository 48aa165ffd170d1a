package command

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
)

func newStudentCmd(a *app) *cobra.Command {
	studentCmd := &cobra.Command{
		Use:   "student",
		Short: "Manage student records",
	}

	var s campus.Student
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				created, err := c.AddStudent(ctx, s)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Added student %s (%s)\n", created.StudentID, created.Name)
				return nil
			})
		},
	}
	studentFlags(addCmd, &s)
	addCmd.Flags().StringVar(&s.StudentID, "id", "", "student id (required)")
	addCmd.Flags().StringVar(&s.Password, "password", "", "initial password")
	addCmd.MarkFlagRequired("id")
	addCmd.MarkFlagRequired("name")

	var u campus.Student
	updateCmd := &cobra.Command{
		Use:   "update [student_id]",
		Short: "Change fields of a student; omitted fields are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u.StudentID = args[0]
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				updated, err := c.UpdateStudent(ctx, u)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Updated student %s\n", updated.StudentID)
				printStudent(out, updated)
				return nil
			})
		},
	}
	studentFlags(updateCmd, &u)

	getCmd := &cobra.Command{
		Use:   "get [student_id]",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				st, err := c.GetStudent(ctx, args[0])
				if err != nil {
					return err
				}
				printStudent(out, st)
				return nil
			})
		},
	}

	var q campus.Query
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List students, optionally filtered by keyword",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				students, err := c.ListStudents(ctx, q)
				if err != nil {
					return err
				}
				table(out, "students", len(students), "ID\tNAME\tMAJOR\tCLASS\tEMAIL", func(tw *tabwriter.Writer) {
					for _, st := range students {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.StudentID, st.Name, st.Major, st.Class, st.Email)
					}
				})
				return nil
			})
		},
	}
	queryFlags(listCmd, &q)

	deleteCmd := &cobra.Command{
		Use:   "delete [student_id]",
		Short: "Remove a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				if err := c.DeleteStudent(ctx, args[0]); err != nil {
					return err
				}
				success.Fprintf(out, "✓ Deleted student %s\n", args[0])
				return nil
			})
		},
	}

	studentCmd.AddCommand(addCmd, updateCmd, getCmd, listCmd, deleteCmd)
	return studentCmd
}

func studentFlags(cmd *cobra.Command, s *campus.Student) {
	cmd.Flags().StringVar(&s.Name, "name", "", "full name")
	cmd.Flags().StringVar(&s.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&s.Major, "major", "", "major")
	cmd.Flags().StringVar(&s.Class, "class", "", "class")
	cmd.Flags().StringVar(&s.Email, "email", "", "email address")
}

func queryFlags(cmd *cobra.Command, q *campus.Query) {
	cmd.Flags().StringVarP(&q.Keyword, "keyword", "k", "", "filter keyword")
	cmd.Flags().IntVarP(&q.Limit, "limit", "l", 0, "maximum results (server default when 0)")
}

func printStudent(out io.Writer, s *campus.Student) {
	header.Fprintf(out, "%s  %s\n", s.StudentID, s.Name)
	for _, f := range [][2]string{
		{"Gender", s.Gender}, {"Major", s.Major}, {"Class", s.Class}, {"Email", s.Email},
	} {
		if f[1] != "" {
			fmt.Fprintf(out, "   %s: %s\n", f[0], f[1])
		}
	}
	if !s.CreatedAt.IsZero() {
		faint.Fprintf(out, "   Registered: %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	}
}
