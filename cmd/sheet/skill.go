package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pbaille/sheet/internal/domain"
	"github.com/spf13/cobra"
)

func skillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Inspect and edit skill trees",
	}

	cmd.AddCommand(skillShowCmd())
	cmd.AddCommand(skillAddCmd())
	cmd.AddCommand(skillSetCmd())
	cmd.AddCommand(skillBonusCmd())
	return cmd
}

func skillShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [tree]",
		Short: "Show one skill tree, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				tree, err := a.skills.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printTree(tree)
				return nil
			}

			trees := a.registry.LoadAll(cmd.Context())
			if len(trees) == 0 {
				fmt.Println("No skill trees yet. Use 'sheet skill add' to create one.")
				return nil
			}
			ids := make([]string, 0, len(trees))
			for id := range trees {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				printTree(trees[id])
				fmt.Println()
			}
			return nil
		},
	}
}

func skillAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [tree] [name] [value]",
		Short: "Add a skill to a tree (the tree is created if needed)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := 0
			if len(args) == 3 {
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("value must be a number: %w", err)
				}
				value = n
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := a.skills.AddSkill(cmd.Context(), args[0], args[1], value)
			if err != nil {
				return err
			}
			printTree(tree)
			return nil
		},
	}
}

func skillSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [tree] [skill-id] [value]",
		Short: "Set the points invested in a skill",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("value must be a number: %w", err)
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := a.skills.SetSkillValue(cmd.Context(), args[0], args[1], value)
			if err != nil {
				return err
			}
			printTree(tree)
			return nil
		},
	}
}

func skillBonusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bonus [tree] [manual-bonus]",
		Short: "Set the manual bonus of a tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bonus, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bonus must be a number: %w", err)
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tree, err := a.skills.SetManualBonus(cmd.Context(), args[0], bonus)
			if err != nil {
				return err
			}
			printTree(tree)
			return nil
		},
	}
}

func printTree(tree domain.SkillTree) {
	fmt.Printf("%s (%s)  tree bonus %d, manual bonus %d\n", tree.Title, tree.ID, tree.TreeBonus, tree.ManualBonus)
	if len(tree.Skills) == 0 {
		fmt.Println("  (no skills)")
		return
	}
	for _, s := range tree.Skills {
		fmt.Printf("  %-20s %4d +%-3d = %4d  %s\n", truncate(s.Name, 20), s.Value, s.Bonus, s.FinalValue, s.ID)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
