package cli

import (
	"context"
	"os"

	"github.com/cloudchat-app/cloudchat/internal/avatars"
	"github.com/cloudchat-app/cloudchat/internal/common"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// Avatar uploads a local image as the current user's profile picture. The
// image goes to object storage through a presigned URL; only the storage key
// is kept on the account record.
func (a *App) Avatar(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	path, err := getSimpleText(a.reader, "Enter image file path", os.Stdout)
	if err != nil {
		return err
	}

	image, err := readFile(path)
	if err != nil {
		printlnFn("Cannot read file:", path)
		return err
	}

	key, url, err := a.avatars.PresignUpload(ctx)
	if err != nil {
		a.logger.Error(ctx, "presigning avatar upload failed", "error", err)
		printlnFn("Could not upload the avatar, try again later.")
		return err
	}

	if err := avatars.Upload(ctx, url, image); err != nil {
		a.logger.Error(ctx, "avatar upload failed", "error", err)
		printlnFn("Could not upload the avatar, try again later.")
		return err
	}

	if _, err := a.accounts.SetAvatar(ctx, sess.AccountID, key); err != nil {
		a.logger.Error(ctx, "saving avatar key failed", "error", err)
		return err
	}

	printlnFn("Avatar updated.")
	return nil
}

// ChangeSecret updates the current user's password. Allowed for every
// account, including root.
func (a *App) ChangeSecret(ctx context.Context) error {
	sess := a.currentSession()
	if sess == nil {
		printlnFn("Not logged in.")
		return common.ErrUnauthorized
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.accounts.ChangeSecret(ctx, sess.AccountID, string(password)); err != nil {
		a.logger.Error(ctx, "changing password failed", "error", err)
		printlnFn("Could not change the password, try again later.")
		return err
	}

	printlnFn("Password changed.")
	return nil
}
