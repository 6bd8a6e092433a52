package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nikitaxru/cellmapper"
)

func sheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <template.xlsx>",
		Short: "Список листов шаблона с размерами",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := cellmapper.NewSheetLoader(logger).Load(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ЛИСТ\tСТРОК\tКОЛОНОК\tНЕПУСТЫХ")
			for _, sh := range sheets {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", sh.Name, sh.Rows, sh.Cols, len(sh.Cells))
			}
			return w.Flush()
		},
	}
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <template.xlsx>",
		Short: "Показать лист с подставленными значениями",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := newSession(ctx, args[0], true)
			if err != nil {
				return err
			}
			names := sess.SheetNames()
			if sheetName != "" {
				names = []string{sheetName}
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				g, err := sess.Grid(name)
				if err != nil {
					return err
				}
				if asJSON {
					if err := writeGridJSON(out, g); err != nil {
						return err
					}
					continue
				}
				if err := writeGrid(out, g); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&dataPaths, "data", "d", nil, "JSON-ответ экстрактора (можно несколько)")
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "JSON-файл набора привязок")
	cmd.Flags().StringVar(&templateID, "id", "", "идентификатор набора в хранилище")
	cmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "только этот лист")
	cmd.Flags().BoolVar(&asJSON, "json", false, "вывод в JSON")
	return cmd
}

// writeGrid печатает лист таблицей. Привязанные ячейки в квадратных скобках,
// незаполненные показывают путь поля.
func writeGrid(out io.Writer, g *cellmapper.Grid) error {
	fmt.Fprintf(out, "== %s ==\n", g.Sheet.Name)
	rows := g.Rows()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(rows) > 0 {
		header := []string{""}
		for c := range rows[0] {
			header = append(header, cellmapper.ColumnName(c))
		}
		fmt.Fprintln(w, strings.Join(header, "\t"))
	}
	for r, line := range rows {
		cells := []string{fmt.Sprint(r + 1)}
		for _, dc := range line {
			switch {
			case dc.Mapped && dc.Filled:
				cells = append(cells, "["+dc.Text+"]")
			case dc.Mapped:
				cells = append(cells, "<"+dc.FieldPath+">")
			default:
				cells = append(cells, dc.Text)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c := g.Completion()
	fmt.Fprintf(out, "заполнено: %d из %d (%.0f%%)\n", c.Filled, c.Total, c.Ratio*100)
	for _, p := range g.Projections {
		if !p.Found {
			fmt.Fprintf(out, "массив %s: не найден в данных\n", p.Mapping.ArrayID)
			continue
		}
		fmt.Fprintf(out, "массив %s: ключ %s, строк %d\n", p.Mapping.ArrayID, p.Located.Key, cellmapper.VisibleRowCount(p))
	}
	for _, col := range g.Collisions {
		fmt.Fprintf(out, "пересечение %s: %s перекрыто массивом %s\n", col.Ref, col.FieldPath, col.ArrayID)
	}
	return nil
}

type gridJSON struct {
	Sheet      string                 `json:"sheet"`
	Cells      []cellmapper.GridCell  `json:"cells"`
	Completion cellmapper.Completion  `json:"completion"`
	Collisions []cellmapper.Collision `json:"collisions,omitempty"`
}

func writeGridJSON(out io.Writer, g *cellmapper.Grid) error {
	v := gridJSON{Sheet: g.Sheet.Name, Completion: g.Completion(), Collisions: g.Collisions}
	for _, line := range g.Rows() {
		for _, dc := range line {
			if gc, ok := g.Cell(dc.Ref); ok {
				v.Cells = append(v.Cells, gc)
			}
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <field>...",
		Short: "Найти значения полей в извлечённых данных",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile()
			if err != nil {
				return err
			}
			data, err := loadData(dataPaths)
			if err != nil {
				return err
			}
			res := cellmapper.NewResolver(profile)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ПОЛЕ\tУРОВЕНЬ\tПУТЬ\tЗНАЧЕНИЕ")
			for _, field := range args {
				r := res.Resolve(data, field)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", field, r.Tier, strings.Join(r.Path, "."), cellmapper.FormatValue(r.Value))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringArrayVarP(&dataPaths, "data", "d", nil, "JSON-ответ экстрактора (можно несколько)")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template.xlsx>",
		Short: "Проверить набор привязок",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := newSession(ctx, args[0], false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range sess.Coordinator().Warnings() {
				fmt.Fprintln(out, "предупреждение:", w)
			}
			if err := sess.Coordinator().Validate(); err != nil {
				var verrs cellmapper.ValidationErrors
				if errors.As(err, &verrs) {
					for _, e := range verrs {
						fmt.Fprintln(out, "ошибка:", e.Error())
					}
				}
				return err
			}
			fmt.Fprintln(out, "набор привязок корректен")
			return nil
		},
	}
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "JSON-файл набора привязок")
	cmd.Flags().StringVar(&templateID, "id", "", "идентификатор набора в хранилище")
	return cmd
}

func saveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <template.xlsx>",
		Short: "Проверить набор привязок и сохранить его в хранилище",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mappingPath == "" {
				return fmt.Errorf("нужен --mapping")
			}
			ctx := cmd.Context()
			sess, err := newSession(ctx, args[0], false)
			if err != nil {
				return err
			}
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
			defer cancel()
			if err := sess.Save(ctx, st); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.TemplateID())
			return nil
		},
	}
	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "JSON-файл набора привязок")
	cmd.Flags().StringVar(&templateID, "id", "", "идентификатор набора (по умолчанию новый)")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Идентификаторы сохранённых наборов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
			defer cancel()
			ids, err := st.List(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
