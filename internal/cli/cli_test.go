package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version 命令失败: %v", err)
	}
	if !strings.HasPrefix(out.String(), "rateintel ") {
		t.Fatalf("输出缺少版本信息: %q", out.String())
	}
	if appHandle != nil {
		t.Fatal("version 命令不应加载配置")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "opportunities", "weekly", "city", "hotels", "window", "collect", "export", "simulate-alert", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("未注册命令 %s", name)
		}
	}
}

func TestArgumentValidation(t *testing.T) {
	if err := cityCmd.Args(cityCmd, nil); err == nil {
		t.Fatal("city 命令缺少参数时应报错")
	}
	if err := windowCmd.Args(windowCmd, []string{"a", "b"}); err == nil {
		t.Fatal("window 命令只接受一个参数")
	}
}
