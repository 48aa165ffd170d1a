package command

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vcampus/internal/campus"
)

func newTeacherCmd(a *app) *cobra.Command {
	teacherCmd := &cobra.Command{
		Use:   "teacher",
		Short: "Manage teacher records",
	}

	var t campus.Teacher
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new teacher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				created, err := c.AddTeacher(ctx, t)
				if err != nil {
					return err
				}
				success.Fprintf(out, "✓ Added teacher %s (%s)\n", created.TeacherID, created.Name)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&t.TeacherID, "id", "", "teacher id (required)")
	addCmd.Flags().StringVar(&t.Name, "name", "", "full name (required)")
	addCmd.Flags().StringVar(&t.Department, "department", "", "department")
	addCmd.Flags().StringVar(&t.Title, "title", "", "academic title")
	addCmd.Flags().StringVar(&t.Password, "password", "", "initial password")
	addCmd.MarkFlagRequired("id")
	addCmd.MarkFlagRequired("name")

	var q campus.Query
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				teachers, err := c.ListTeachers(ctx, q)
				if err != nil {
					return err
				}
				table(out, "teachers", len(teachers), "ID\tNAME\tDEPARTMENT\tTITLE", func(tw *tabwriter.Writer) {
					for _, te := range teachers {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", te.TeacherID, te.Name, te.Department, te.Title)
					}
				})
				return nil
			})
		},
	}
	queryFlags(listCmd, &q)

	deleteCmd := &cobra.Command{
		Use:   "delete [teacher_id]",
		Short: "Remove a teacher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				if err := c.DeleteTeacher(ctx, args[0]); err != nil {
					return err
				}
				success.Fprintf(out, "✓ Deleted teacher %s\n", args[0])
				return nil
			})
		},
	}

	teacherCmd.AddCommand(addCmd, listCmd, deleteCmd)
	return teacherCmd
}

func newPasswordCmd(a *app) *cobra.Command {
	passwordCmd := &cobra.Command{
		Use:   "password",
		Short: "Password administration",
	}

	var r campus.PasswordReset
	var role string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password for a student or teacher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r.Role = campus.Role(role)
			// fail before dialing when the request cannot be valid
			if err := r.Validate(); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *campus.Client, out io.Writer) error {
				if err := c.ResetPassword(ctx, r); err != nil {
					return err
				}
				success.Fprintf(out, "✓ Password reset for %s %s\n", r.Role, r.UserID)
				return nil
			})
		},
	}
	resetCmd.Flags().StringVar(&role, "role", string(campus.RoleStudent), "student or teacher")
	resetCmd.Flags().StringVar(&r.UserID, "user", "", "student or teacher id (required)")
	resetCmd.Flags().StringVar(&r.NewPassword, "new", "", "new password (required)")
	resetCmd.MarkFlagRequired("user")
	resetCmd.MarkFlagRequired("new")

	passwordCmd.AddCommand(resetCmd)
	return passwordCmd
}
