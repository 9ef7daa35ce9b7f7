package main

import (
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

const (
	themeDark  = "dark"
	themeLight = "light"
)

type clickerTheme struct {
	base fyne.Theme
	dark bool
}

func newClickerTheme(name string) fyne.Theme {
	if strings.EqualFold(strings.TrimSpace(name), themeLight) {
		return &clickerTheme{base: theme.LightTheme()}
	}
	return &clickerTheme{base: theme.DarkTheme(), dark: true}
}

func (t *clickerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameHyperlink:
		return color.NRGBA{R: 0x2e, G: 0xa0, B: 0x6f, A: 0xff}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xe5, G: 0x4b, B: 0x4b, A: 0xff}
	case theme.ColorNameWarning:
		return color.NRGBA{R: 0xf2, G: 0xb1, B: 0x4c, A: 0xff}
	}
	if !t.dark {
		return t.base.Color(name, variant)
	}

	switch name {
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0x0f, G: 0x14, B: 0x12, A: 0xff}
	case theme.ColorNameHeaderBackground:
		return color.NRGBA{R: 0x14, G: 0x1b, B: 0x18, A: 0xff}
	case theme.ColorNameButton:
		return color.NRGBA{R: 0x1e, G: 0x29, B: 0x24, A: 0xff}
	case theme.ColorNameDisabledButton:
		return color.NRGBA{R: 0x17, G: 0x1e, B: 0x1b, A: 0xff}
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 0x12, G: 0x1a, B: 0x16, A: 0xff}
	case theme.ColorNameInputBorder, theme.ColorNameSeparator:
		return color.NRGBA{R: 0x2a, G: 0x3a, B: 0x33, A: 0xff}
	case theme.ColorNameFocus:
		return accent(0x66)
	case theme.ColorNameHover:
		return accent(0x22)
	case theme.ColorNamePressed, theme.ColorNameSelection:
		return accent(0x40)
	case theme.ColorNameForeground:
		return color.NRGBA{R: 0xe8, G: 0xf0, B: 0xec, A: 0xff}
	case theme.ColorNamePlaceHolder:
		return color.NRGBA{R: 0x9a, G: 0xab, B: 0xa3, A: 0xff}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x6f, G: 0xd9, B: 0xa0, A: 0xff}
	}
	return t.base.Color(name, variant)
}

func (t *clickerTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.base.Font(style)
}

func (t *clickerTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.base.Icon(name)
}

func (t *clickerTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameInputRadius:
		return 8
	}
	return t.base.Size(name)
}

func accent(alpha uint8) color.Color {
	return color.NRGBA{R: 0x4f, G: 0xc0, B: 0x8d, A: alpha}
}
