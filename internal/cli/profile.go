package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/store"
)

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	profileCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE:  runProfileShow,
	}, &cobra.Command{
		Use:   "set FIELD VALUE",
		Short: "Set display_name, email, phone or profession",
		Args:  cobra.ExactArgs(2),
		RunE:  runProfileSet,
	}, &cobra.Command{
		Use:   "avatar FILE",
		Short: "Upload a new avatar image, replacing the old one",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfileAvatar,
	})
	return profileCmd
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		p, err := sess.Profile.Fetch(ctx)
		if err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	})
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		value := args[1]
		var patch model.ProfilePatch
		switch args[0] {
		case "display_name", "name":
			patch.DisplayName = &value
		case "email":
			patch.Email = &value
		case "phone":
			patch.Phone = &value
		case "profession":
			patch.Profession = &value
		default:
			return fmt.Errorf("unknown profile field %q", args[0])
		}
		p, err := sess.Profile.Update(ctx, patch)
		if err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	})
}

func runProfileAvatar(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app, sess *store.Session) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open avatar: %w", err)
		}
		defer f.Close()

		url, err := sess.Profile.UploadAvatar(ctx, filepath.Base(args[0]), f)
		if err != nil {
			return err
		}
		p, err := sess.Profile.Update(ctx, model.ProfilePatch{AvatarURL: &url})
		if err != nil {
			return err
		}
		printProfile(cmd.OutOrStdout(), p)
		return nil
	})
}

func printProfile(w io.Writer, p model.UserProfile) {
	fmt.Fprintf(w, "display_name: %s\n", p.DisplayName)
	fmt.Fprintf(w, "email:        %s\n", p.Email)
	fmt.Fprintf(w, "phone:        %s\n", p.Phone)
	fmt.Fprintf(w, "profession:   %s\n", p.Profession)
	fmt.Fprintf(w, "avatar_url:   %s\n", p.AvatarURL)
}
