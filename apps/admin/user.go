package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core/role"
	"github.com/trezcool/mpiangona/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var uname, email, r string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user (or reset an existing one) with the given role. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(cmd, uname); err != nil {
				return err
			}
			rl, err := role.Parse(r)
			if err != nil {
				return err
			}
			if !role.Issuable(rl) {
				return role.ErrNotIssuable
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.addUser(uname, email, pwd, rl)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "the user's email")
	cmd.Flags().StringVarP(&r, "role", "r", string(role.Default), "the user's role")
	return cmd
}

// addUser updates or creates a user.User holding `r`.
func (cli *commandLine) addUser(uname, email, pwd string, r role.Role) error {
	ctx := context.Background()
	deps := cli.c.Deps

	usr, err := deps.UserSvc.GetByUsernameOrEmail(ctx, uname)
	switch {
	case errors.Is(err, user.ErrNotFound):
		usr, err = deps.UserSvc.SignUp(ctx, user.NewUser{
			Username:        uname,
			Email:           null.NewString(email, email != ""),
			Password:        pwd,
			PasswordConfirm: pwd,
		})
	case err == nil:
		usr, err = deps.UserSvc.SetPassword(ctx, usr, pwd)
	}
	if err != nil {
		return err
	}

	if _, err = deps.RoleSvc.Upsert(ctx, usr.ID, r); err != nil {
		return err
	}
	cli.printf("user %s saved with role %s\n", usr.Username, r)
	return nil
}

func (cli *commandLine) resetPasswordCommand() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(cmd, uname); err != nil {
				return err
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username or email")
	return cmd
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.c.Deps.UserSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.c.Deps.UserSvc.SetPassword(ctx, usr, pwd)
	return err
}

func (cli *commandLine) setRoleCommand() *cobra.Command {
	var uname, r string
	cmd := &cobra.Command{
		Use:   "setrole",
		Short: "Assign a role to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag(cmd, uname); err != nil {
				return err
			}
			if err := requireFlag(cmd, r); err != nil {
				return err
			}
			rl, err := role.Parse(r)
			if err != nil {
				return err
			}
			return cli.setRole(uname, rl)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the user's username or email")
	cmd.Flags().StringVarP(&r, "role", "r", "", "the role to assign")
	return cmd
}

func (cli *commandLine) setRole(uname string, r role.Role) error {
	ctx := context.Background()
	usr, err := cli.c.Deps.UserSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err = cli.c.Deps.RoleSvc.Upsert(ctx, usr.ID, r); err != nil {
		return err
	}
	cli.printf("%s is now %s\n", usr.Username, r)
	return nil
}
