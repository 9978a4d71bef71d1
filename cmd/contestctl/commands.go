package main

import (
	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func registryCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "network registry operations",
		Subcommands: []*cli.Command{
			{
				Name:  "deploy",
				Usage: "deploy the registry of the network, owned by --caller",
				Action: func(c *cli.Context) error {
					caller, err := callerOf(c)
					if err != nil {
						return err
					}
					view, err := a.registries.Deploy(c.Context, models.NormalizeAddress(caller))
					if err != nil {
						return err
					}
					return a.print(view)
				},
			},
			{
				Name:  "show",
				Usage: "show the network registry",
				Action: func(c *cli.Context) error {
					view, err := a.registries.Current(c.Context)
					if err != nil {
						return err
					}
					return a.print(view)
				},
			},
			{
				Name:      "add-contest",
				Usage:     "append a contest to a registry",
				ArgsUsage: "<registry> <contest>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return usageError(c, "expected <registry> <contest>")
					}
					caller, err := callerOf(c)
					if err != nil {
						return err
					}
					view, err := a.registries.AddContest(c.Context, models.NormalizeAddress(caller),
						models.NormalizeAddress(c.Args().Get(0)), models.NormalizeAddress(c.Args().Get(1)))
					if err != nil {
						return err
					}
					return a.print(view)
				},
			},
			{
				Name:      "num-contests",
				ArgsUsage: "<registry>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <registry>")
					}
					n, err := a.registries.NumContests(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(map[string]int{"num_contests": n})
				},
			},
			{
				Name:      "current",
				Usage:     "most recently added contest",
				ArgsUsage: "<registry>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <registry>")
					}
					addr, err := a.registries.CurrentContest(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(map[string]models.Address{"contest": addr})
				},
			},
			{
				Name:  "deployments",
				Usage: "list deployment records of the network",
				Action: func(c *cli.Context) error {
					deployments, err := a.registries.Deployments(c.Context)
					if err != nil {
						return err
					}
					return a.print(deployments)
				},
			},
		},
	}
}

func contestCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "contest",
		Usage: "contest lifecycle operations",
		Subcommands: []*cli.Command{
			{
				Name:  "deploy",
				Usage: "deploy a contest and add it to the network registry",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "preset", Value: -1, Usage: "deploy the preset with this index"},
					&cli.StringFlag{Name: "asset"},
					&cli.IntFlag{Name: "length-days"},
					&cli.IntFlag{Name: "min-runners", Value: contest.MinQuorum},
					&cli.StringFlag{Name: "entry-fee", Value: "0"},
					&cli.StringFlag{Name: "payout-first", Value: "0"},
					&cli.StringFlag{Name: "payout-second", Value: "0"},
					&cli.StringFlag{Name: "payout-third", Value: "0"},
					&cli.IntFlag{Name: "decimals", Usage: "decimals the amounts are written in"},
					&cli.StringFlag{Name: "mode"},
					&cli.StringFlag{Name: "description"},
				},
				Action: func(c *cli.Context) error {
					caller, err := callerOf(c)
					if err != nil {
						return err
					}
					var view *models.ContestView
					if preset := c.Int("preset"); preset >= 0 {
						view, err = a.contests.DeployPreset(c.Context, models.NormalizeAddress(caller), preset)
					} else {
						params, perr := paramsFromFlags(c)
						if perr != nil {
							return perr
						}
						view, err = a.contests.Deploy(c.Context, models.NormalizeAddress(caller), params)
					}
					if err != nil {
						return err
					}
					return a.print(view)
				},
			},
			{
				Name:  "presets",
				Usage: "list deploy presets",
				Action: func(c *cli.Context) error {
					return a.print(a.contests.Presets())
				},
			},
			{
				Name:      "show",
				ArgsUsage: "<contest>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <contest>")
					}
					view, err := a.contests.Get(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(view)
				},
			},
			{
				Name:      "owner",
				ArgsUsage: "<contest>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <contest>")
					}
					view, err := a.contests.Get(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(map[string]models.Address{"owner": view.Owner})
				},
			},
			contestAction(a, "cancel", "cancel the contest", func(c *cli.Context, caller, addr models.Address) (interface{}, error) {
				return a.contests.Cancel(c.Context, caller, addr)
			}),
			contestAction(a, "start", "close registration and start the contest", func(c *cli.Context, caller, addr models.Address) (interface{}, error) {
				return a.contests.Start(c.Context, caller, addr)
			}),
			contestAction(a, "withdraw", "withdraw the owner surplus", func(c *cli.Context, caller, addr models.Address) (interface{}, error) {
				return a.contests.Withdraw(c.Context, caller, addr)
			}),
			registerCommand(a),
			runnerAction(a, "collect", "pay a winner", func(c *cli.Context, caller, addr models.Address, runner models.RunnerID) (interface{}, error) {
				return a.contests.CollectWinnings(c.Context, caller, addr, runner)
			}),
			runnerAction(a, "refund", "refund a runner of a canceled contest", func(c *cli.Context, caller, addr models.Address, runner models.RunnerID) (interface{}, error) {
				return a.contests.ProcessRefund(c.Context, caller, addr, runner)
			}),
			{
				Name:      "end",
				Usage:     "record the winners",
				ArgsUsage: "<contest> <first> <second> <third>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 4 {
						return usageError(c, "expected <contest> <first> <second> <third>")
					}
					caller, err := callerOf(c)
					if err != nil {
						return err
					}
					var winners [3]models.RunnerID
					for i := range winners {
						if winners[i], err = models.ParseRunnerID(c.Args().Get(i + 1)); err != nil {
							return usageError(c, "%v", err)
						}
					}
					result, err := a.contests.End(c.Context, models.NormalizeAddress(caller),
						models.NormalizeAddress(c.Args().First()), winners[0], winners[1], winners[2])
					if err != nil {
						return err
					}
					return a.print(result)
				},
			},
			{
				Name:  "notify-results-due",
				Usage: "run one pass of the results-due scheduler",
				Action: func(c *cli.Context) error {
					n, err := a.contests.NotifyResultsDue(c.Context)
					if err != nil {
						return err
					}
					return a.print(map[string]int{"notified": n})
				},
			},
		},
	}
}

func contestAction(a *app, name, usage string, fn func(*cli.Context, models.Address, models.Address) (interface{}, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<contest>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c, "expected <contest>")
			}
			caller, err := callerOf(c)
			if err != nil {
				return err
			}
			result, err := fn(c, models.NormalizeAddress(caller), models.NormalizeAddress(c.Args().First()))
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
}

// registerCommand pays the entry fee for a runner. With --approve it first
// sets the caller's allowance for the contest to exactly one entry fee.
func registerCommand(a *app) *cli.Command {
	cmd := runnerAction(a, "register", "pay the entry fee for a runner", func(c *cli.Context, caller, addr models.Address, runner models.RunnerID) (interface{}, error) {
		if c.Bool("approve") {
			view, err := a.contests.Get(c.Context, addr)
			if err != nil {
				return nil, err
			}
			if _, err := a.ledger.Approve(c.Context, caller, view.Asset, addr, view.EntryFee); err != nil {
				return nil, err
			}
		}
		return a.contests.RegisterRunner(c.Context, caller, addr, runner)
	})
	cmd.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "approve", Usage: "approve the entry fee for the contest before registering"},
	}
	return cmd
}

func runnerAction(a *app, name, usage string, fn func(*cli.Context, models.Address, models.Address, models.RunnerID) (interface{}, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<contest> <runner>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageError(c, "expected <contest> <runner>")
			}
			caller, err := callerOf(c)
			if err != nil {
				return err
			}
			runner, err := models.ParseRunnerID(c.Args().Get(1))
			if err != nil {
				return usageError(c, "%v", err)
			}
			result, err := fn(c, models.NormalizeAddress(caller), models.NormalizeAddress(c.Args().First()), runner)
			if err != nil {
				return err
			}
			return a.print(result)
		},
	}
}

func assetCommand(a *app) *cli.Command {
	amountFlags := []cli.Flag{
		&cli.IntFlag{Name: "decimals", Usage: "decimals the amount is written in"},
	}
	return &cli.Command{
		Name:  "asset",
		Usage: "asset ledger operations",
		Subcommands: []*cli.Command{
			{
				Name:      "mint",
				Usage:     "credit an account with new units",
				ArgsUsage: "<asset> <account> <amount>",
				Flags:     amountFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return usageError(c, "expected <asset> <account> <amount>")
					}
					amount, err := amountArg(c, 2)
					if err != nil {
						return err
					}
					balance, err := a.ledger.Mint(c.Context, models.NormalizeAddress(c.Args().Get(0)),
						models.NormalizeAddress(c.Args().Get(1)), amount)
					if err != nil {
						return err
					}
					return a.print(map[string]decimal.Decimal{"balance": balance})
				},
			},
			{
				Name:      "approve",
				Usage:     "let a spender pull up to amount from --caller",
				ArgsUsage: "<asset> <spender> <amount>",
				Flags:     amountFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return usageError(c, "expected <asset> <spender> <amount>")
					}
					caller, err := callerOf(c)
					if err != nil {
						return err
					}
					amount, err := amountArg(c, 2)
					if err != nil {
						return err
					}
					allowance, err := a.ledger.Approve(c.Context, models.NormalizeAddress(caller),
						models.NormalizeAddress(c.Args().Get(0)), models.NormalizeAddress(c.Args().Get(1)), amount)
					if err != nil {
						return err
					}
					return a.print(allowance)
				},
			},
			{
				Name:      "balance",
				ArgsUsage: "<asset> <account>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return usageError(c, "expected <asset> <account>")
					}
					balance, err := a.ledger.BalanceOf(c.Context, models.NormalizeAddress(c.Args().Get(0)), models.NormalizeAddress(c.Args().Get(1)))
					if err != nil {
						return err
					}
					return a.print(map[string]decimal.Decimal{"balance": balance})
				},
			},
		},
	}
}

func accountCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "API accounts",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "create an account and print its API key",
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <address>")
					}
					account, key, err := a.auth.CreateAccount(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(map[string]interface{}{"account": account, "api_key": key})
				},
			},
			{
				Name:      "rotate-key",
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <address>")
					}
					key, err := a.auth.RotateKey(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(map[string]string{"api_key": key})
				},
			},
			{
				Name:      "registrations",
				Usage:     "list the runner ids an account registered, newest first",
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return usageError(c, "expected <address>")
					}
					regs, err := a.contests.ListRegistrations(c.Context, models.NormalizeAddress(c.Args().First()))
					if err != nil {
						return err
					}
					return a.print(regs)
				},
			},
		},
	}
}

func amountArg(c *cli.Context, idx int) (decimal.Decimal, error) {
	amount, err := contest.ParseUnits(c.Args().Get(idx), int32(c.Int("decimals")))
	if err != nil {
		return decimal.Zero, usageError(c, "%v", err)
	}
	return amount, nil
}

func paramsFromFlags(c *cli.Context) (models.ContestParams, error) {
	decimals := int32(c.Int("decimals"))
	params := models.ContestParams{
		Asset:             models.NormalizeAddress(c.String("asset")),
		ContestLengthDays: c.Int("length-days"),
		MinRunners:        c.Int("min-runners"),
		Mode:              c.String("mode"),
		Description:       c.String("description"),
	}
	amounts := []struct {
		flag string
		dst  *decimal.Decimal
	}{
		{"entry-fee", &params.EntryFee},
		{"payout-first", &params.PayoutFirst},
		{"payout-second", &params.PayoutSecond},
		{"payout-third", &params.PayoutThird},
	}
	for _, amt := range amounts {
		v, err := contest.ParseUnits(c.String(amt.flag), decimals)
		if err != nil {
			return params, usageError(c, "--%s: %v", amt.flag, err)
		}
		*amt.dst = v
	}
	return params, nil
}
