package cli

const shortUsage = "Extract Java literals into constants and propagate them"

const longUsage = `constprop - extract a literal into a named constant and replace every
equivalent literal in a chosen scope with a reference to it.

Scopes:
  class       the literal's top-level class; the constant is private
  hierarchy   the topmost writable superclass and all of its subclasses;
              the constant is protected and lives in that superclass
  package     the package and all of its subpackages; the constant is
              declared in the <Pkg>ConstantsIF interface

Positions are 1-based line and column numbers, as shown by editors.

Configuration is read from <workspace>/.constprop/config.yml and can be
overridden with CONSTPROP_* environment variables, for example
CONSTPROP_AUTO_SCOPE=package.`

const ExtractExample = `  constprop extract src/demo/Foo.java 5 13
  constprop extract src/demo/Foo.java 5 13 --scope package --name GREETING
  constprop extract src/demo/Foo.java 5 13 --preview
  constprop extract src/demo/Foo.java 5 13 --interactive`

const ScanExample = `  constprop scan
  constprop scan src/demo
  constprop scan --auto --scope hierarchy`
