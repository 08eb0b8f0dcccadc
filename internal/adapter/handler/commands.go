package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/core/service"
	bagerrors "github.com/rl1809/guild-bag/internal/errors"
)

// BagCommands implements the chat commands on top of a BagService.
type BagCommands struct {
	svc    *service.BagService
	prefix string
}

// RegisterCommands installs every guild bag command on r.
func RegisterCommands(r *bot.Router, svc *service.BagService) *BagCommands {
	c := &BagCommands{svc: svc, prefix: r.Prefix()}

	r.Register(bot.Command{Name: "h", Handler: c.help})
	r.Register(bot.Command{Name: "add", Handler: c.add})
	r.Register(bot.Command{Name: "remove", Handler: c.remove})
	r.Register(bot.Command{Name: "list", Handler: c.list})
	r.Register(bot.Command{Name: "currency", Handler: c.currency})
	for _, d := range domain.Denominations {
		r.Register(bot.Command{Name: coinCommand(d, 'a'), Handler: c.deposit(d)})
	}
	for _, d := range domain.Denominations {
		r.Register(bot.Command{Name: coinCommand(d, 'r'), Handler: c.withdraw(d)})
	}
	r.Register(bot.Command{Name: "wishlist", Handler: c.wishlist})
	r.Register(bot.Command{Name: "addwish", Handler: c.addWish})
	r.Register(bot.Command{Name: "removewish", Handler: c.removeWish})
	return c
}

// coinCommand builds "ga" / "gr" style names from the denomination code.
func coinCommand(d domain.Denomination, op byte) string {
	return string([]byte{string(d)[0], op})
}

func codeBlock(s string) string {
	return "```" + s + "```"
}

// HelpText is the static command listing.
func (c *BagCommands) HelpText() string {
	p := c.prefix
	lines := []string{
		p + "h - This will give you this list of commands.",
		p + "add # [item] - Add items to the Guild's bag.",
		p + "remove # [item] - Remove items from the Guild's bag.",
		p + "list [page] - Display 25 unique items per page.",
		p + "currency - Display current Guild currency amounts.",
		p + "ca/sa/ea/ga/pa # - Add currency (Copper, Silver, Electrum, Gold, Platinum).",
		p + "cr/sr/er/gr/pr # - Remove currency.",
		p + "wishlist - Display the current wish list.",
		p + "addwish [item] - Add an item to the wish list.",
		p + "removewish [item] - Remove an item from the wish list.",
	}
	return codeBlock(strings.Join(lines, "\n") + "\n")
}

func (c *BagCommands) help(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	return c.HelpText(), nil
}

func (c *BagCommands) add(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	count, err := args.Int("count")
	if err != nil {
		return "", err
	}
	item, err := args.Rest("item")
	if err != nil {
		return "", err
	}

	if _, err := c.svc.AddItem(ctx, item, count); err != nil {
		if errors.Is(err, service.ErrNonPositiveCount) || errors.Is(err, service.ErrQuantityOverflow) {
			return "", bagerrors.BadArgument("add", "count", strconv.Itoa(count))
		}
		return "", err
	}
	return fmt.Sprintf("Added %dx %s to the Guild's bag.", count, item), nil
}

func (c *BagCommands) remove(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	count, err := args.Int("count")
	if err != nil {
		return "", err
	}
	item, err := args.Rest("item")
	if err != nil {
		return "", err
	}

	if _, err := c.svc.RemoveItem(ctx, item, count); err != nil {
		switch {
		case errors.Is(err, service.ErrInsufficientItems):
			return fmt.Sprintf("Not enough %s in the bag.", item), nil
		case errors.Is(err, service.ErrNonPositiveCount):
			return "", bagerrors.BadArgument("remove", "count", strconv.Itoa(count))
		}
		return "", err
	}
	return fmt.Sprintf("Removed %dx %s from the Guild's bag.", count, item), nil
}

func (c *BagCommands) list(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	page, err := args.IntOr("page", 1)
	if err != nil {
		return "", err
	}

	result, err := c.svc.ListItems(page)
	var pageErr *service.InvalidPageError
	switch {
	case errors.Is(err, service.ErrEmptyBag):
		return codeBlock("=== Guild Bag - Empty ===\nThe bag contains no items."), nil
	case errors.As(err, &pageErr):
		return fmt.Sprintf("Invalid page number. Please use a page between 1 and %d.", pageErr.TotalPages), nil
	case err != nil:
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Guild Bag - Page %d/%d", result.Number, result.TotalPages)
	for _, line := range result.Items {
		fmt.Fprintf(&b, "\n%s: %d", line.Name, line.Quantity)
	}
	return codeBlock(b.String()), nil
}

func (c *BagCommands) wishlist(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	wishes := c.svc.Wishlist()
	if len(wishes) == 0 {
		return "The wish list is empty.", nil
	}
	return codeBlock("Wish List\n" + strings.Join(wishes, "\n")), nil
}

func (c *BagCommands) addWish(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	item, err := args.Rest("item")
	if err != nil {
		return "", err
	}

	if err := c.svc.AddWish(ctx, item); err != nil {
		if errors.Is(err, service.ErrWishExists) {
			return fmt.Sprintf("'%s' is already in the wish list.", item), nil
		}
		return "", err
	}
	return fmt.Sprintf("Added '%s' to the wish list.", item), nil
}

func (c *BagCommands) removeWish(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	item, err := args.Rest("item")
	if err != nil {
		return "", err
	}

	if err := c.svc.RemoveWish(ctx, item); err != nil {
		if errors.Is(err, service.ErrWishMissing) {
			return fmt.Sprintf("'%s' is not in the wish list.", item), nil
		}
		return "", err
	}
	return fmt.Sprintf("Removed '%s' from the wish list.", item), nil
}

func (c *BagCommands) currency(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
	purse := c.svc.Currency()

	lines := make([]string, 0, len(domain.Denominations))
	for _, d := range domain.Denominations {
		lines = append(lines, fmt.Sprintf("%s: %d", d.Name(), purse[d]))
	}
	return codeBlock("Guild Currency\n" + strings.Join(lines, "\n")), nil
}

func (c *BagCommands) deposit(d domain.Denomination) bot.HandlerFunc {
	name := coinCommand(d, 'a')
	return func(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
		amount, err := args.Int("amount")
		if err != nil {
			return "", err
		}
		if _, err := c.svc.Deposit(ctx, d, amount); err != nil {
			if errors.Is(err, service.ErrNegativeAmount) || errors.Is(err, service.ErrQuantityOverflow) {
				return "", bagerrors.BadArgument(name, "amount", strconv.Itoa(amount))
			}
			return "", err
		}
		return fmt.Sprintf("Added %d %s to the Guild's bag.", amount, d.Name()), nil
	}
}

func (c *BagCommands) withdraw(d domain.Denomination) bot.HandlerFunc {
	name := coinCommand(d, 'r')
	return func(ctx context.Context, req domain.Request, args *bot.Args) (string, error) {
		amount, err := args.Int("amount")
		if err != nil {
			return "", err
		}
		if _, err := c.svc.Withdraw(ctx, d, amount); err != nil {
			if errors.Is(err, service.ErrNegativeAmount) {
				return "", bagerrors.BadArgument(name, "amount", strconv.Itoa(amount))
			}
			return "", err
		}
		return fmt.Sprintf("Removed %d %s from the Guild's bag.", amount, d.Name()), nil
	}
}
